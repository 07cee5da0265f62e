package service

import (
	"bytes"
	"context"
	"sort"
	"time"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementServiceImpl implements ports.SettlementService.
//
// A settlement is one database transaction. Row locks are taken in a fixed
// order (order row, products by id, wallets by id) so concurrent
// settlements, transfers and cancellations cannot deadlock each other.
type SettlementServiceImpl struct {
	transactor  ports.DBTransactor
	orderRepo   ports.OrderRepository
	productRepo ports.ProductRepository
	addressRepo ports.AddressRepository
	cartRepo    ports.CartRepository
	walletRepo  ports.WalletRepository
	ledger      ports.LedgerPoster
	inventory   ports.InventoryGuard
	events      eventStager
	notifier    ports.OutboxNotifier
	log         zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl. notifier may be nil.
func NewSettlementService(
	transactor ports.DBTransactor,
	orderRepo ports.OrderRepository,
	productRepo ports.ProductRepository,
	addressRepo ports.AddressRepository,
	cartRepo ports.CartRepository,
	walletRepo ports.WalletRepository,
	outboxRepo ports.OutboxRepository,
	ledger ports.LedgerPoster,
	inventory ports.InventoryGuard,
	notifier ports.OutboxNotifier,
	topics config.TopicsConfig,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		transactor:  transactor,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		addressRepo: addressRepo,
		cartRepo:    cartRepo,
		walletRepo:  walletRepo,
		ledger:      ledger,
		inventory:   inventory,
		events:      eventStager{outbox: outboxRepo, topics: topics},
		notifier:    notifier,
		log:         log,
	}
}

// lineGroup is the settlement view of one product in the order.
type lineGroup struct {
	productID uuid.UUID
	sellerID  uuid.UUID
	lines     []domain.OrderLine
	quantity  int
}

// Settle pays for a PENDING order out of the buyer's wallet, credits every
// seller, decrements stock and marks the order PAID. Either all of it
// commits or none of it does.
func (s *SettlementServiceImpl) Settle(ctx context.Context, p domain.Principal, req ports.SettleRequest) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, storageError("get order", err)
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if !order.OwnedBy(p.UserID) {
		return nil, apperror.ErrUnauthorized()
	}

	address, err := s.deliveryAddress(ctx, p, req)
	if err != nil {
		return nil, err
	}

	buyerWallet, err := s.walletRepo.GetByOwnerID(ctx, p.UserID)
	if err != nil {
		return nil, storageError("get buyer wallet", err)
	}
	if buyerWallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err = s.orderRepo.GetByIDForUpdate(ctx, dbTx, req.OrderID)
	if err != nil {
		return nil, storageError("lock order", err)
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperror.ErrOrderNotPending()
	}

	groups, err := s.groupLines(ctx, order)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		if _, err := s.inventory.ReserveStock(ctx, dbTx, g.productID, g.quantity); err != nil {
			return nil, err
		}
	}

	sellerWallets, err := s.sellerWallets(ctx, groups)
	if err != nil {
		return nil, err
	}
	walletIDs := []uuid.UUID{buyerWallet.ID}
	for _, w := range sellerWallets {
		walletIDs = append(walletIDs, w.ID)
	}
	if _, err := s.ledger.LockWallets(ctx, dbTx, walletIDs...); err != nil {
		return nil, err
	}

	reference := order.ID.String()
	total := order.Total()
	if total.IsPositive() {
		_, err := s.ledger.Debit(ctx, dbTx, buyerWallet.ID, total, domain.Posting{
			Kind:         domain.LedgerKindOrderSettlement,
			Counterparty: reference,
			Reference:    reference,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, g := range groups {
		seller := sellerWallets[g.sellerID]
		for _, line := range g.lines {
			amount := line.Amount()
			if !amount.IsPositive() {
				continue
			}
			_, err := s.ledger.Credit(ctx, dbTx, seller.ID, amount, domain.Posting{
				Kind:         domain.LedgerKindOrderSettlement,
				Counterparty: buyerWallet.AccountNumber,
				Reference:    reference,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	now := time.Now().UTC()
	order.DeliveryAddressID = &address.ID
	if err := order.TransitionTo(domain.OrderStatusPaid, now); err != nil {
		return nil, apperror.ErrInvalidTransition(string(order.Status), string(domain.OrderStatusPaid))
	}
	if err := s.orderRepo.UpdateStatus(ctx, dbTx, order); err != nil {
		return nil, storageError("update order status", err)
	}
	if err := s.cartRepo.Clear(ctx, dbTx, p.UserID); err != nil {
		return nil, storageError("clear cart", err)
	}

	if err := s.events.stage(ctx, dbTx, now, settlementEvents(order, groups, *address, buyerWallet, now)...); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}
	notify(s.notifier)

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("buyer_wallet", buyerWallet.ID.String()).
		Str("amount", total.StringFixed(2)).
		Int("products", len(groups)).
		Int("sellers", len(sellerWallets)).
		Msg("order settled")

	return order, nil
}

// deliveryAddress checks the address preconditions in order: the buyer has
// an address book, an address was chosen, and it is the buyer's.
func (s *SettlementServiceImpl) deliveryAddress(ctx context.Context, p domain.Principal, req ports.SettleRequest) (*domain.Address, error) {
	count, err := s.addressRepo.CountByUser(ctx, p.UserID)
	if err != nil {
		return nil, storageError("count addresses", err)
	}
	if count == 0 {
		return nil, apperror.ErrNoAddressOnFile()
	}
	if req.MalformedAddress {
		return nil, apperror.Validation("address_id must be a valid UUID")
	}
	if req.AddressID == nil || *req.AddressID == uuid.Nil {
		return nil, apperror.ErrAddressRequired()
	}

	address, err := s.addressRepo.GetByID(ctx, *req.AddressID)
	if err != nil {
		return nil, storageError("get address", err)
	}
	if address == nil {
		return nil, apperror.ErrNotFound("Address")
	}
	if !address.OwnedBy(p.UserID) {
		return nil, apperror.ErrUnauthorized()
	}
	return address, nil
}

// groupLines merges the order's lines per product, resolves each product's
// seller and sorts by product id.
func (s *SettlementServiceImpl) groupLines(ctx context.Context, order *domain.Order) ([]*lineGroup, error) {
	byProduct := make(map[uuid.UUID]*lineGroup)
	ids := make([]uuid.UUID, 0, len(order.Lines))
	for _, line := range order.Lines {
		g, ok := byProduct[line.ProductID]
		if !ok {
			g = &lineGroup{productID: line.ProductID}
			byProduct[line.ProductID] = g
			ids = append(ids, line.ProductID)
		}
		g.lines = append(g.lines, line)
		g.quantity += line.Quantity
	}

	groups := make([]*lineGroup, 0, len(ids))
	for _, id := range sortedUniqueIDs(ids) {
		product, err := s.productRepo.GetByID(ctx, id)
		if err != nil {
			return nil, storageError("get product", err)
		}
		if product == nil {
			return nil, apperror.ErrNotFound("Product")
		}
		g := byProduct[id]
		g.sellerID = product.OwnerID
		groups = append(groups, g)
	}
	return groups, nil
}

func (s *SettlementServiceImpl) sellerWallets(ctx context.Context, groups []*lineGroup) (map[uuid.UUID]*domain.Wallet, error) {
	wallets := make(map[uuid.UUID]*domain.Wallet)
	for _, g := range groups {
		if _, ok := wallets[g.sellerID]; ok {
			continue
		}
		w, err := s.walletRepo.GetByOwnerID(ctx, g.sellerID)
		if err != nil {
			return nil, storageError("get seller wallet", err)
		}
		if w == nil {
			return nil, apperror.ErrNotFound("Seller wallet")
		}
		wallets[g.sellerID] = w
	}
	return wallets, nil
}

// settlementEvents builds one stock event per product, one sale event per
// seller and the audit record of the buyer debit.
func settlementEvents(order *domain.Order, groups []*lineGroup, address domain.Address, buyer *domain.Wallet, now time.Time) []domain.Event {
	events := make([]domain.Event, 0, len(groups)+2)
	for _, g := range groups {
		events = append(events, domain.StockChanged{
			ProductID: g.productID,
			Delta:     -g.quantity,
			OrderID:   order.ID,
		})
	}

	sales := make(map[uuid.UUID]*domain.SellerSale)
	sellers := make([]uuid.UUID, 0)
	for _, g := range groups {
		sale, ok := sales[g.sellerID]
		if !ok {
			sale = &domain.SellerSale{
				SellerID:        g.sellerID,
				OrderID:         order.ID,
				DeliveryAddress: address,
			}
			sales[g.sellerID] = sale
			sellers = append(sellers, g.sellerID)
		}
		for _, line := range g.lines {
			sale.Items = append(sale.Items, domain.SoldItem{
				ProductID: line.ProductID,
				Title:     line.Title,
				Quantity:  line.Quantity,
				Amount:    line.Amount(),
			})
		}
	}
	sort.Slice(sellers, func(i, j int) bool { return bytes.Compare(sellers[i][:], sellers[j][:]) < 0 })
	for _, id := range sellers {
		events = append(events, *sales[id])
	}

	events = append(events, domain.TransactionAudit{
		Kind:        domain.LedgerKindOrderSettlement,
		FromAccount: buyer.AccountNumber,
		Amount:      order.Total(),
		Reference:   order.ID.String(),
		OccurredAt:  now,
	})
	return events
}
