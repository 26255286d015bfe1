package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/service/billing"
)

// createBill оформляет продажу: POST /bills.
func (s *Server) createBill(c *gin.Context) {
	var req createBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	lines := make([]billing.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, billing.LineRequest{ItemID: item.ItemID, Qty: item.Quantity})
	}

	bill, err := s.bills.CreateBill(c.Request.Context(), req.CustomerID, lines, req.CreatedBy)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBillResponse(bill))
}

func (s *Server) getBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bill, err := s.bills.GetBill(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponse(bill))
}

func (s *Server) getBillByNumber(c *gin.Context) {
	bill, err := s.bills.GetBillByNumber(c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponse(bill))
}

func (s *Server) listBills(c *gin.Context) {
	bills, err := s.bills.ListBills()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponses(bills))
}

func (s *Server) listBillsByStatus(c *gin.Context) {
	bills, err := s.bills.ListBillsByStatus(domain.BillStatus(c.Param("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponses(bills))
}

func (s *Server) listCustomerBills(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bills, err := s.bills.ListBillsByCustomer(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponses(bills))
}

// updateBillStatus: PUT /bills/:id/status?status=PAID.
func (s *Server) updateBillStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	status := c.Query("status")
	if status == "" {
		writeError(c, domain.ErrInvalidStatus)
		return
	}

	bill, err := s.bills.UpdateStatus(id, domain.BillStatus(status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponse(bill))
}

func (s *Server) deleteBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.bills.DeleteBill(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getBillTimeline(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	events, err := s.bills.Timeline(id)
	if err != nil {
		writeError(c, err)
		return
	}

	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	c.JSON(http.StatusOK, result)
}

// pathID разбирает числовой идентификатор из пути; при мусоре пишет 400 и
// возвращает false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domain.ErrInvalidArgument)
		return 0, false
	}
	return id, true
}
