package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// errorBody — структура ошибки на проводе: {"error":{"kind","message","item_id"?}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	ItemID  *int64 `json:"item_id,omitempty"`
}

// writeError переводит доменную ошибку в HTTP-статус и wire kind.
func writeError(c *gin.Context, err error) {
	status, kind, itemID := classify(err)
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		Kind:    kind,
		Message: err.Error(),
		ItemID:  itemID,
	}})
}

func classify(err error) (int, string, *int64) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		id := stockErr.ItemID
		return http.StatusConflict, "InsufficientStock", &id
	}

	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, "CustomerNotFound", nil
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, "ItemNotFound", nil
	case errors.Is(err, domain.ErrBillNotFound):
		return http.StatusNotFound, "BillNotFound", nil
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "UserNotFound", nil
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "InvalidQuantity", nil
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrLinesRequired):
		return http.StatusBadRequest, "InvalidArgument", nil
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict, "DuplicateKey", nil
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, "VersionConflict", nil
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "InvalidCredentials", nil
	case errors.Is(err, domain.ErrUserDisabled):
		return http.StatusForbidden, "UserDisabled", nil
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusUnprocessableEntity, "IdempotencyKeyReused", nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Клиент ушёл до завершения транзакции; резервы уже откатились.
		return http.StatusServiceUnavailable, "RequestCancelled", nil
	default:
		return http.StatusInternalServerError, "PersistenceFailure", nil
	}
}
