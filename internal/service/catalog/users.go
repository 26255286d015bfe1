package catalog

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// UserUpdate — частичное обновление учётной записи: nil-поля не трогаются.
type UserUpdate struct {
	Role    *domain.UserRole
	Enabled *bool
}

// UserService управляет учётными записями back-office и аутентификацией.
type UserService struct {
	users      domain.UserRepository
	bcryptCost int
	logger     *log.Entry
}

// NewUserService создаёт сервис учётных записей.
func NewUserService(users domain.UserRepository, logger *log.Entry) *UserService {
	if logger == nil {
		logger = log.WithField("component", "catalog-users")
	}
	return &UserService{users: users, bcryptCost: bcrypt.DefaultCost, logger: logger}
}

// Create регистрирует пользователя с bcrypt-хэшем пароля. Сырой пароль
// после хэширования нигде не хранится.
func (s *UserService) Create(username, password string, role domain.UserRole, enabled bool) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: username and password are required", domain.ErrInvalidArgument)
	}
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id":  created.ID,
		"username": created.Username,
		"role":     created.Role,
	}).Info("user created")

	return created, nil
}

// Get возвращает пользователя по идентификатору.
func (s *UserService) Get(id int64) (domain.User, error) {
	return s.users.Get(id)
}

// GetByUsername возвращает пользователя по имени.
func (s *UserService) GetByUsername(username string) (domain.User, error) {
	return s.users.GetByUsername(username)
}

// List возвращает всех пользователей.
func (s *UserService) List() ([]domain.User, error) {
	return s.users.List()
}

// ListByRole возвращает пользователей с заданной ролью.
func (s *UserService) ListByRole(role domain.UserRole) ([]domain.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, role)
	}
	return s.users.ListByRole(role)
}

// Update меняет роль и флаг активности.
func (s *UserService) Update(id int64, update UserUpdate) (domain.User, error) {
	user, err := s.users.Get(id)
	if err != nil {
		return domain.User{}, err
	}

	if update.Role != nil {
		if !update.Role.Valid() {
			return domain.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, *update.Role)
		}
		user.Role = *update.Role
	}
	if update.Enabled != nil {
		user.Enabled = *update.Enabled
	}
	user.UpdatedAt = time.Now().UTC()

	return s.users.Save(user)
}

// ChangePassword перехэширует пароль пользователя.
func (s *UserService) ChangePassword(id int64, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidArgument)
	}

	user, err := s.users.Get(id)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()
	_, err = s.users.Save(user)
	return err
}

// Delete удаляет учётную запись.
func (s *UserService) Delete(id int64) error {
	return s.users.Delete(id)
}

// Login сверяет пароль с bcrypt-хэшем. Неизвестное имя и неверный пароль
// неразличимы для вызывающей стороны: оба дают ErrInvalidCredentials.
func (s *UserService) Login(username, password string) (domain.User, error) {
	user, err := s.users.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if !user.Enabled {
		return domain.User{}, domain.ErrUserDisabled
	}

	return user, nil
}
