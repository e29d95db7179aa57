package identity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/taskboard/domain/board"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&board.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// memSessions is an in-memory SessionStore.
type memSessions struct {
	data map[string][]byte
}

func newMemSessions() *memSessions {
	return &memSessions{data: map[string][]byte{}}
}

func (m *memSessions) SetWithTTL(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

func (m *memSessions) Get(_ context.Context, key string, dest any) (bool, error) {
	data, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memSessions) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewRepository(setupTestDB(t)), newMemSessions())
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "s3cret", "Alice")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if !user.IsActive {
		t.Error("new account should be active")
	}
	if user.PasswordHash == "s3cret" || user.PasswordHash == "" {
		t.Error("password stored without hashing")
	}

	// Username and email are both unique.
	if _, err := svc.Register("alice", "other@example.com", "x", ""); !errors.Is(err, board.ErrConflict) {
		t.Errorf("duplicate username = %v, want ErrConflict", err)
	}
	if _, err := svc.Register("bob", "alice@example.com", "x", ""); !errors.Is(err, board.ErrConflict) {
		t.Errorf("duplicate email = %v, want ErrConflict", err)
	}
	if _, err := svc.Register("", "", "", ""); err == nil {
		t.Error("empty registration should fail")
	}
}

func TestLoginAndResolve(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register("alice", "alice@example.com", "s3cret", "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	user, token, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if token == "" {
		t.Fatal("login returned empty token")
	}
	if user.LastLogin == nil {
		t.Error("login did not record last_login")
	}

	userID, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if userID != registered.ID {
		t.Errorf("resolved %q, want %q", userID, registered.ID)
	}

	// Unknown user and wrong password fail identically.
	if _, _, err := svc.Login(ctx, "nobody", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("resolve after logout = %v, want ErrNotFound", err)
	}
}

func TestDeactivateBlocksLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register("alice", "alice@example.com", "s3cret", "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	_, token, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if err := svc.Deactivate(user.ID); err != nil {
		t.Fatalf("Deactivate() error: %v", err)
	}

	// Sessions issued before deactivation stop resolving right away.
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("resolve after Deactivate = %v, want ErrNotFound", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("deactivated login = %v, want ErrInvalidCredentials", err)
	}

	// The row survives; only the flag flips.
	got, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.IsActive {
		t.Error("account still active after Deactivate")
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register("alice", "alice@example.com", "old-pass", "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "wrong", "new-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong current password = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangePassword(user.ID, "old-pass", "new-pass"); err != nil {
		t.Fatalf("ChangePassword() error: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "new-pass"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "old-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still works")
	}
}

func TestSearch(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Register("alice", "alice@example.com", "x", "Alice Smith"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := svc.Register("bob", "bob@example.com", "x", "Bob Jones"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	inactive, err := svc.Register("carol", "carol@example.com", "x", "Carol Alison")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := svc.Deactivate(inactive.ID); err != nil {
		t.Fatalf("Deactivate() error: %v", err)
	}

	// Matches username and full name, case-insensitively; skips inactive.
	users, err := svc.Search("ali", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("Search(ali) = %d users, want just alice", len(users))
	}

	if _, err := svc.Search("", 10); err == nil {
		t.Error("empty query should fail")
	}
}
