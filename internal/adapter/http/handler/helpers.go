package handler

import (
	"errors"
	"net/http"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/adapter/http/middleware"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// principal returns the caller or writes a 401 and reports false.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return domain.Principal{}, false
	}
	return p, true
}

// uuidParam parses a path parameter or writes a 400 and reports false.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation(name+" must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds and sanitizes a request body or writes a 400.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, middleware.ErrBodyTooLarge())
			return false
		}
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}
