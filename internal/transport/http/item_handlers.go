package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/service/catalog"
)

func (s *Server) createItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil {
			writeError(c, domain.ErrInvalidArgument)
			return
		}
		price = parsed
	}

	item, err := s.items.Create(domain.Item{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		StockQty:    req.StockQty,
		Category:    req.Category,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toItemResponse(item))
}

func (s *Server) getItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := s.items.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

func (s *Server) getItemByCode(c *gin.Context) {
	item, err := s.items.GetByCode(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

func (s *Server) listItems(c *gin.Context) {
	items, err := s.items.List()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponses(items))
}

func (s *Server) listItemsByCategory(c *gin.Context) {
	items, err := s.items.ListByCategory(c.Param("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponses(items))
}

// searchItems: GET /items/search?name=...
func (s *Server) searchItems(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	items, err := s.items.SearchByName(name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponses(items))
}

func (s *Server) updateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	update := catalog.ItemUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Price != nil {
		parsed, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeError(c, domain.ErrInvalidArgument)
			return
		}
		update.Price = &parsed
	}

	item, err := s.items.Update(id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

// adjustItemStock: POST /items/:id/stock {"delta": -3}.
func (s *Server) adjustItemStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	item, err := s.items.AdjustStock(id, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

func (s *Server) deleteItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.items.Delete(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
