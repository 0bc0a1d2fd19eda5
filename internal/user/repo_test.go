package user

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/gruenet/gruechat/internal/db"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepo(database.DB)
}

func TestAuthenticateProvisionsUnknownUser(t *testing.T) {
	repo := testRepo(t)

	u, err := repo.Authenticate("alice", "pw1")
	if err != nil {
		t.Fatalf("first authentication should provision: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("unexpected username %q", u.Username)
	}
	if !repo.Exists("alice") {
		t.Fatal("provisioned user missing from store")
	}

	// The provisioned secret sticks: the same password succeeds, any
	// other fails.
	if _, err := repo.Authenticate("alice", "pw1"); err != nil {
		t.Fatalf("repeat authentication failed: %v", err)
	}
	if _, err := repo.Authenticate("alice", "pw2"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestAuthenticateIsCaseSensitive(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Authenticate("Alice", "pw1"); err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	// A different casing is a different, unknown user and provisions
	// its own account.
	if _, err := repo.Authenticate("alice", "other"); err != nil {
		t.Fatalf("expected distinct account for distinct casing: %v", err)
	}
	if !repo.Exists("Alice") || !repo.Exists("alice") {
		t.Fatal("expected both casings to exist as separate accounts")
	}
}

func TestUpdateModesRoundTrip(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Create("bob", "pw"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateModes("bob", "mt"); err != nil {
		t.Fatalf("update modes: %v", err)
	}

	u, err := repo.GetByUsername("bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := u.Perms.String(); got != "mt" {
		t.Fatalf("expected modes %q, got %q", "mt", got)
	}
	if got := u.Perms.Grantable(); got != "mtq" {
		t.Fatalf("expected grantable %q, got %q", "mtq", got)
	}
}

func TestUpdatePassword(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Create("carol", "old"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdatePassword("carol", "new"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := repo.Authenticate("carol", "old"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := repo.Authenticate("carol", "new"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Create("dave", "pw"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete("dave"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if repo.Exists("dave") {
		t.Fatal("deleted user still exists")
	}
	if err := repo.Delete("dave"); err == nil {
		t.Fatal("expected error deleting a missing user")
	}
}
