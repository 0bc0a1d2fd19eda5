package user

import (
	"time"

	"github.com/gruenet/gruechat/internal/perm"
)

// User represents a chat user account. Accounts outlive connections:
// disconnecting removes the live session binding, never the account.
type User struct {
	ID           int
	Username     string
	PasswordHash string
	Perms        *perm.Set
	TotalCalls   int
	LastSeenAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
