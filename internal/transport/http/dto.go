package http

import (
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// Денежные поля сериализуются строками с двумя знаками после запятой.

type createBillRequest struct {
	CustomerID int64             `json:"customer_id" binding:"required"`
	Items      []billLineRequest `json:"items" binding:"required"`
	CreatedBy  int64             `json:"created_by"`
}

type billLineRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity"`
}

type billLineResponse struct {
	ID         int64  `json:"id"`
	ItemID     int64  `json:"item_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

type billResponse struct {
	ID          int64              `json:"id"`
	BillNumber  string             `json:"bill_number"`
	CustomerID  int64              `json:"customer_id"`
	TotalAmount string             `json:"total_amount"`
	Status      string             `json:"status"`
	CreatedBy   int64              `json:"created_by"`
	Lines       []billLineResponse `json:"lines"`
	BillDate    time.Time          `json:"bill_date"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func toBillResponse(bill domain.Bill) billResponse {
	lines := make([]billLineResponse, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		lines = append(lines, billLineResponse{
			ID:         line.ID,
			ItemID:     line.ItemID,
			Quantity:   line.Qty,
			UnitPrice:  line.UnitPrice.StringFixed(2),
			TotalPrice: line.TotalPrice.StringFixed(2),
		})
	}
	return billResponse{
		ID:          bill.ID,
		BillNumber:  bill.BillNumber,
		CustomerID:  bill.CustomerID,
		TotalAmount: bill.TotalAmount.StringFixed(2),
		Status:      string(bill.Status),
		CreatedBy:   bill.CreatedByID,
		Lines:       lines,
		BillDate:    bill.BillDate,
		UpdatedAt:   bill.UpdatedAt,
	}
}

func toBillResponses(bills []domain.Bill) []billResponse {
	result := make([]billResponse, 0, len(bills))
	for _, bill := range bills {
		result = append(result, toBillResponse(bill))
	}
	return result
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type createItemRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       string `json:"price"`
	StockQty    int    `json:"stock_qty"`
	Category    string `json:"category"`
}

type updateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Price       *string `json:"price"`
}

type adjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	StockQty    int    `json:"stock_qty"`
	Category    string `json:"category,omitempty"`
}

func toItemResponse(item domain.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Code:        item.Code,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price.StringFixed(2),
		StockQty:    item.StockQty,
		Category:    item.Category,
	}
}

func toItemResponses(items []domain.Item) []itemResponse {
	result := make([]itemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, toItemResponse(item))
	}
	return result
}

type createCustomerRequest struct {
	AccountNumber string `json:"account_number"`
	Name          string `json:"name" binding:"required"`
	Address       string `json:"address"`
	Telephone     string `json:"telephone"`
	Email         string `json:"email"`
	UserID        int64  `json:"user_id"`
}

type updateCustomerRequest struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	Telephone *string `json:"telephone"`
	Email     *string `json:"email"`
	UserID    *int64  `json:"user_id"`
}

type customerResponse struct {
	ID            int64  `json:"id"`
	AccountNumber string `json:"account_number"`
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Telephone     string `json:"telephone,omitempty"`
	Email         string `json:"email,omitempty"`
	UserID        int64  `json:"user_id,omitempty"`
}

func toCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:            c.ID,
		AccountNumber: c.AccountNumber,
		Name:          c.Name,
		Address:       c.Address,
		Telephone:     c.Telephone,
		Email:         c.Email,
		UserID:        c.UserID,
	}
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Enabled  *bool  `json:"enabled"`
}

type updateUserRequest struct {
	Role    *string `json:"role"`
	Enabled *bool   `json:"enabled"`
}

type changePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Хэш пароля наружу не отдаётся.
type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Enabled  bool   `json:"enabled"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		Enabled:  u.Enabled,
	}
}
