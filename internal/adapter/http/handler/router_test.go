package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"marketplace-settlement/config"
	httpHandler "marketplace-settlement/internal/adapter/http/handler"
	"marketplace-settlement/internal/adapter/storage/memory"
	redisStorage "marketplace-settlement/internal/adapter/storage/redis"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp runs the real router, middleware and services against the memory
// store, with rate limits kept in miniredis.
type testApp struct {
	server *httptest.Server
	store  *memory.Store
	tokens *service.JWTTokenService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zerolog.Nop()
	topics := config.TopicsConfig{
		InventoryUpdates:    "inventory-updates",
		SellerNotifications: "seller-notifications",
		WalletNotifications: "wallet-notifications",
		TransactionAudit:    "transaction-audit",
	}

	store := memory.NewStore(2 * time.Second)
	walletRepo := memory.NewWalletRepo(store)
	productRepo := memory.NewProductRepo(store)
	cartRepo := memory.NewCartRepo(store)
	orderRepo := memory.NewOrderRepo(store)
	outboxRepo := memory.NewOutboxRepo(store)

	authorizer, err := service.NewStubAuthorizer(config.PaymentConfig{Mode: service.AuthorizerLimit, ApproveLimit: "1000.00"})
	require.NoError(t, err)

	hashSvc := service.NewArgon2HashService(config.WalletConfig{ArgonMemoryKB: 1024, ArgonIterations: 1, ArgonThreads: 1})
	wallets := service.NewWalletService(store, walletRepo, memory.NewLedgerRepo(store), outboxRepo,
		hashSvc, authorizer, nil, topics, log)
	settlement := service.NewSettlementService(store, orderRepo, productRepo, memory.NewAddressRepo(store), cartRepo,
		walletRepo, outboxRepo, wallets, service.NewInventoryGuard(productRepo), nil, topics, log)
	tokens := service.NewJWTTokenService("router-test-secret-with-32-bytes!", time.Hour, "marketplace-test")

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      wallets,
		CartSvc:        service.NewCartService(cartRepo, productRepo, log),
		OrderSvc:       service.NewOrderService(store, orderRepo, cartRepo, log),
		SettlementSvc:  settlement,
		TokenSvc:       tokens,
		RateLimiter:    redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{store, redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       service.NewAuditService(memory.NewAuditRepo(store), log),
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, store: store, tokens: tokens}
}

type apiClient struct {
	t     *testing.T
	app   *testApp
	token string
}

func (a *testApp) client(t *testing.T, userID uuid.UUID, role string) *apiClient {
	token, _, err := a.tokens.Generate(userID, role)
	require.NoError(t, err)
	return &apiClient{t: t, app: a, token: token}
}

// do sends a request and decodes the envelope into a generic map.
func (c *apiClient) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.app.server.URL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "no data in %v", body)
	return d
}

func amount(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "amount %v is not a string", v)
	return decimal.RequireFromString(s)
}

func (c *apiClient) openWallet(pin, deposit string) string {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/api/v1/wallets", map[string]string{"pin": pin})
	require.Equal(c.t, http.StatusCreated, status, body)
	if deposit != "" {
		status, body = c.do(http.MethodPost, "/api/v1/wallets/me/deposit", map[string]string{"amount": deposit})
		require.Equal(c.t, http.StatusOK, status, body)
	}
	return data(c.t, body)["account_number"].(string)
}

func (c *apiClient) balance() decimal.Decimal {
	c.t.Helper()
	status, body := c.do(http.MethodGet, "/api/v1/wallets/me", nil)
	require.Equal(c.t, http.StatusOK, status, body)
	return amount(c.t, data(c.t, body)["balance"])
}

func (c *apiClient) orderOf(productID uuid.UUID, qty int) string {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"product_id": productID.String(), "quantity": qty})
	require.Equal(c.t, http.StatusOK, status, body)
	status, body = c.do(http.MethodPost, "/api/v1/orders", nil)
	require.Equal(c.t, http.StatusCreated, status, body)
	return data(c.t, body)["id"].(string)
}

func TestRouter_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body["dependencies"], "memory")
	assert.Contains(t, body["dependencies"], "redis")
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	app := newTestApp(t)

	anon := &apiClient{t: t, app: app}
	status, body := anon.do(http.MethodGet, "/api/v1/wallets/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_003", body["error_code"])

	forged := &apiClient{t: t, app: app, token: "eyJhbGciOiJIUzI1NiJ9.e30.bad"}
	status, _ = forged.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_WalletTransferFlow(t *testing.T) {
	app := newTestApp(t)
	alice := app.client(t, uuid.New(), domain.RoleCustomer)
	bob := app.client(t, uuid.New(), domain.RoleCustomer)

	alice.openWallet("1111", "100.00")
	bobAccount := bob.openWallet("2222", "")

	status, body := alice.do(http.MethodPost, "/api/v1/wallets/me/transfer",
		map[string]string{"to_account": bobAccount, "amount": "30.25", "pin": "1111"})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = alice.do(http.MethodPost, "/api/v1/wallets/me/transfer",
		map[string]string{"to_account": bobAccount, "amount": "1.00", "pin": "9999"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INVALID_PIN", body["error_kind"])

	status, body = alice.do(http.MethodPost, "/api/v1/wallets/me/transfer",
		map[string]string{"to_account": bobAccount, "amount": "500.00", "pin": "1111"})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "INSUFFICIENT_FUNDS", body["error_kind"])

	assert.True(t, alice.balance().Equal(decimal.RequireFromString("69.75")))
	assert.True(t, bob.balance().Equal(decimal.RequireFromString("30.25")))

	status, body = alice.do(http.MethodGet, "/api/v1/wallets/me/entries?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), data(t, body)["total"])

	// Over the gateway limit.
	status, body = alice.do(http.MethodPost, "/api/v1/wallets/me/deposit", map[string]string{"amount": "5000.00"})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "UPSTREAM_PAYMENT_FAILURE", body["error_kind"])
}

func TestRouter_OrderLifecycle(t *testing.T) {
	app := newTestApp(t)
	buyerID, sellerID := uuid.New(), uuid.New()
	buyer := app.client(t, buyerID, domain.RoleCustomer)
	seller := app.client(t, sellerID, domain.RoleCustomer)
	operator := app.client(t, uuid.New(), domain.RoleOperator)

	buyer.openWallet("1234", "200.00")
	seller.openWallet("4321", "")

	lamp := domain.Product{ID: uuid.New(), OwnerID: sellerID, Title: "Lamp", Price: decimal.RequireFromString("45.50"), Stock: 5}
	app.store.PutProduct(lamp)
	addr := domain.Address{ID: uuid.New(), UserID: buyerID, Recipient: "B", Street: "1 Main", City: "Springfield", PostalCode: "1", Country: "US"}
	app.store.PutAddress(addr)

	orderID := buyer.orderOf(lamp.ID, 2)

	// The seller cannot pay for someone else's order.
	status, _ := seller.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pay", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = seller.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pay", map[string]string{"address_id": "home"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := buyer.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pay", map[string]string{"address_id": "home"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "REQ_001", body["error_code"])

	status, body = buyer.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pay", map[string]string{"address_id": addr.ID.String()})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "PAID", data(t, body)["status"])

	assert.True(t, buyer.balance().Equal(decimal.RequireFromString("109.00")))
	assert.True(t, seller.balance().Equal(decimal.RequireFromString("91.00")))
	p, _ := app.store.Product(lamp.ID)
	assert.Equal(t, 3, p.Stock)

	status, body = buyer.do(http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, data(t, body)["lines"])

	status, body = buyer.do(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NOT_CANCELABLE", body["error_kind"])

	status, _ = buyer.do(http.MethodPost, "/api/v1/orders/"+orderID+"/ship", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = operator.do(http.MethodPost, "/api/v1/orders/"+orderID+"/deliver", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", body["error_kind"])

	status, _ = operator.do(http.MethodPost, "/api/v1/orders/"+orderID+"/ship", nil)
	require.Equal(t, http.StatusOK, status)
	status, body = operator.do(http.MethodPost, "/api/v1/orders/"+orderID+"/deliver", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DELIVERED", data(t, body)["status"])

	// Audit entries are written asynchronously.
	want := []domain.AuditAction{
		domain.AuditActionOrderCreate, domain.AuditActionOrderPay,
		domain.AuditActionOrderShip, domain.AuditActionOrderDeliver,
	}
	require.Eventually(t, func() bool {
		seen := map[domain.AuditAction]bool{}
		for _, l := range app.store.AuditLogs() {
			seen[l.Action] = true
		}
		for _, a := range want {
			if !seen[a] {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	for _, l := range app.store.AuditLogs() {
		if l.Action == domain.AuditActionOrderPay {
			assert.Equal(t, orderID, l.ResourceID)
			require.NotNil(t, l.UserID)
			assert.Equal(t, buyerID, *l.UserID)
		}
	}
}

// Two orders competing for the last units: exactly one settles.
func TestRouter_ConcurrentPaymentsForLastStock(t *testing.T) {
	app := newTestApp(t)
	sellerID := uuid.New()
	app.client(t, sellerID, domain.RoleCustomer).openWallet("0000", "")

	kettle := domain.Product{ID: uuid.New(), OwnerID: sellerID, Title: "Kettle", Price: decimal.RequireFromString("10.00"), Stock: 3}
	app.store.PutProduct(kettle)

	type buyerOrder struct {
		client    *apiClient
		orderID   string
		addressID uuid.UUID
	}
	var buyers []buyerOrder
	for i := 0; i < 2; i++ {
		id := uuid.New()
		c := app.client(t, id, domain.RoleCustomer)
		c.openWallet("1234", "100.00")
		addr := domain.Address{ID: uuid.New(), UserID: id, Recipient: "B", Street: "S", City: "C", PostalCode: "P", Country: "US"}
		app.store.PutAddress(addr)
		buyers = append(buyers, buyerOrder{client: c, orderID: c.orderOf(kettle.ID, 2), addressID: addr.ID})
	}

	statuses := make([]int, len(buyers))
	var wg sync.WaitGroup
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b buyerOrder) {
			defer wg.Done()
			body := strings.NewReader(`{"address_id":"` + b.addressID.String() + `"}`)
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/orders/"+b.orderID+"/pay", body)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+b.client.token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i, b)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, statuses)
	p, _ := app.store.Product(kettle.ID)
	assert.Equal(t, 1, p.Stock)
}
