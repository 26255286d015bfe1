package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/service/catalog"
)

func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	user, err := s.users.Create(req.Username, req.Password, domain.UserRole(req.Role), enabled)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := s.users.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// listUsers: GET /users[?role=CASHIER].
func (s *Server) listUsers(c *gin.Context) {
	var (
		users []domain.User
		err   error
	)
	if role := c.Query("role"); role != "" {
		users, err = s.users.ListByRole(domain.UserRole(role))
	} else {
		users, err = s.users.List()
	}
	if err != nil {
		writeError(c, err)
		return
	}

	result := make([]userResponse, 0, len(users))
	for _, user := range users {
		result = append(result, toUserResponse(user))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	update := catalog.UserUpdate{Enabled: req.Enabled}
	if req.Role != nil {
		role := domain.UserRole(*req.Role)
		update.Role = &role
	}

	user, err := s.users.Update(id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) changeUserPassword(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	if err := s.users.ChangePassword(id, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.users.Delete(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// login: POST /auth/login. Сессии не выдаются, ответ подтверждает только
// валидность учётных данных.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidArgument)
		return
	}

	user, err := s.users.Login(req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}
