package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/service/catalog"
)

func (s *Server) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	customer, err := s.customers.Create(domain.Customer{
		AccountNumber: req.AccountNumber,
		Name:          req.Name,
		Address:       req.Address,
		Telephone:     req.Telephone,
		Email:         req.Email,
		UserID:        req.UserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCustomerResponse(customer))
}

func (s *Server) getCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	customer, err := s.customers.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) getCustomerByAccount(c *gin.Context) {
	customer, err := s.customers.GetByAccountNumber(c.Param("account"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) getCustomerByUser(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}

	customer, err := s.customers.GetByUserID(userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) listCustomers(c *gin.Context) {
	customers, err := s.customers.List()
	if err != nil {
		writeError(c, err)
		return
	}

	result := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		result = append(result, toCustomerResponse(customer))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) updateCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	customer, err := s.customers.Update(id, catalog.CustomerUpdate{
		Name:      req.Name,
		Address:   req.Address,
		Telephone: req.Telephone,
		Email:     req.Email,
		UserID:    req.UserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) deleteCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.customers.Delete(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
