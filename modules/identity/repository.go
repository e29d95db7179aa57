package identity

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
)

// Repository provides access to user storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new user.
func (r *Repository) Create(user *board.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by ID.
func (r *Repository) FindByID(id string) (*board.User, error) {
	var user board.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByUsername retrieves a user by username.
func (r *Repository) FindByUsername(username string) (*board.User, error) {
	var user board.User
	if err := r.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// UsernameOrEmailTaken reports whether another user already holds the
// username or email.
func (r *Repository) UsernameOrEmailTaken(username, email string) (bool, error) {
	var count int64
	err := r.db.Model(&board.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check username/email: %w", err)
	}
	return count > 0, nil
}

// Save persists changes to an existing user.
func (r *Repository) Save(user *board.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Search returns active users whose username, email or full name contains the
// query, case-insensitively.
func (r *Repository) Search(query string, limit int) ([]*board.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var users []*board.User
	q := r.db.Where("is_active = ?", true).
		Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?",
			pattern, pattern, pattern).
		Order("username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
