// Package http реализует JSON API магазина поверх gin: оформление и
// жизненный цикл счетов, CRUD справочников и аутентификацию.
package http

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/service/billing"
	"github.com/pahanaedu/bookshop/internal/service/catalog"
)

// Server держит зависимости HTTP-обработчиков.
type Server struct {
	bills       *billing.Coordinator
	items       *catalog.ItemService
	customers   *catalog.CustomerService
	users       *catalog.UserService
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
}

// NewServer создаёт HTTP-слой. idempotencyRepo может быть nil: тогда
// заголовок Idempotency-Key игнорируется.
func NewServer(
	bills *billing.Coordinator,
	items *catalog.ItemService,
	customers *catalog.CustomerService,
	users *catalog.UserService,
	idempotencyRepo domain.IdempotencyRepository,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return &Server{
		bills:       bills,
		items:       items,
		customers:   customers,
		users:       users,
		idempotency: idempotencyRepo,
		logger:      logger,
	}
}

// Router собирает gin-маршрутизатор со всеми обработчиками.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestMetrics())

	bills := router.Group("/bills")
	{
		bills.POST("", idempotency(s.idempotency, s.logger), s.createBill)
		bills.GET("", s.listBills)
		bills.GET("/:id", s.getBill)
		bills.GET("/:id/timeline", s.getBillTimeline)
		bills.GET("/number/:number", s.getBillByNumber)
		bills.GET("/status/:status", s.listBillsByStatus)
		bills.PUT("/:id/status", s.updateBillStatus)
		bills.DELETE("/:id", s.deleteBill)
	}

	items := router.Group("/items")
	{
		items.POST("", s.createItem)
		items.GET("", s.listItems)
		items.GET("/:id", s.getItem)
		items.GET("/code/:code", s.getItemByCode)
		items.GET("/category/:category", s.listItemsByCategory)
		items.GET("/search", s.searchItems)
		items.PUT("/:id", s.updateItem)
		items.POST("/:id/stock", s.adjustItemStock)
		items.DELETE("/:id", s.deleteItem)
	}

	customers := router.Group("/customers")
	{
		customers.POST("", s.createCustomer)
		customers.GET("", s.listCustomers)
		customers.GET("/:id", s.getCustomer)
		customers.GET("/:id/bills", s.listCustomerBills)
		customers.GET("/account/:account", s.getCustomerByAccount)
		customers.GET("/user/:user", s.getCustomerByUser)
		customers.PUT("/:id", s.updateCustomer)
		customers.DELETE("/:id", s.deleteCustomer)
	}

	users := router.Group("/users")
	{
		users.POST("", s.createUser)
		users.GET("", s.listUsers)
		users.GET("/:id", s.getUser)
		users.PUT("/:id", s.updateUser)
		users.PUT("/:id/password", s.changeUserPassword)
		users.DELETE("/:id", s.deleteUser)
	}

	router.POST("/auth/login", s.login)

	return router
}
