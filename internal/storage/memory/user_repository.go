package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// userRepositoryInMemory — простая in-memory реализация UserRepository.
type userRepositoryInMemory struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	nextID int64
}

// NewUserRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{users: make(map[int64]domain.User)}
}

// Create сохраняет пользователя; insert-if-absent по username.
func (r *userRepositoryInMemory) Create(user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return domain.User{}, domain.ErrDuplicateKey
		}
	}

	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

// Get возвращает пользователя или ErrUserNotFound.
func (r *userRepositoryInMemory) Get(id int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// GetByUsername возвращает пользователя по имени.
func (r *userRepositoryInMemory) GetByUsername(username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// List возвращает всех пользователей, отсортированных по идентификатору.
func (r *userRepositoryInMemory) List() ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListByRole возвращает пользователей с заданной ролью.
func (r *userRepositoryInMemory) ListByRole(role domain.UserRole) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0)
	for _, user := range r.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Save перезаписывает пользователя, сохраняя уникальность username.
func (r *userRepositoryInMemory) Save(user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	for id, existing := range r.users {
		if id != user.ID && existing.Username == user.Username {
			return domain.User{}, domain.ErrDuplicateKey
		}
	}

	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return user, nil
}

// Delete удаляет пользователя или возвращает ErrUserNotFound.
func (r *userRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
