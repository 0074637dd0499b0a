// Package quota enforces the per-account generation limit. The counter is
// kept server-side in the quota store, keyed by the authenticated user ID,
// so clients cannot reset it by clearing their own storage.
package quota

import (
	"context"
	"database/sql"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/ytsummarizer/internal/user"
)

// DefaultLimit is the number of successful generations a non-exempt account
// may run between logins.
const DefaultLimit = 5

// Decision is the outcome of a quota check.
type Decision int

const (
	Allowed Decision = iota
	Denied
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

type counterStore interface {
	GetGenerationCount(ctx context.Context, userID string) (int, error)
	IncrementGenerationCount(ctx context.Context, userID, email string) (int, error)
	ResetGenerationCount(ctx context.Context, userID, email string) error
	DeleteGenerationCount(ctx context.Context, userID string, transaction *sql.Tx) error
}

// Status describes the quota of one account.
// Remaining is -1 for exempt accounts.
type Status struct {
	Used      int
	Limit     int
	Remaining int
	Exempt    bool
}

// Gate decides whether an account may generate another summary.
type Gate struct {
	store  counterStore
	limit  int
	exempt []string
}

// New creates a Gate. A non-positive limit falls back to DefaultLimit.
// exemptIdentities are compared case-insensitively against account emails.
func New(store counterStore, limit int, exemptIdentities ...string) *Gate {
	if limit <= 0 {
		limit = DefaultLimit
	}

	exempt := make([]string, 0, len(exemptIdentities))
	for _, identity := range exemptIdentities {
		if normalized := user.NormalizeEmail(identity); normalized != "" {
			exempt = append(exempt, normalized)
		}
	}

	return &Gate{
		store:  store,
		limit:  limit,
		exempt: exempt,
	}
}

// Limit returns the configured ceiling.
func (g *Gate) Limit() int {
	return g.limit
}

// IsExempt reports whether identity bypasses the ceiling.
func (g *Gate) IsExempt(identity string) bool {
	return funk.ContainsString(g.exempt, user.NormalizeEmail(identity))
}

// CheckAndConsume decides on a known count. An absent identity is never
// limited; the exempt identity is never limited; everyone else is denied
// once count reaches the limit. The caller increments the counter after a
// successful generation only.
func (g *Gate) CheckAndConsume(identity string, count int) Decision {
	if identity == "" || g.IsExempt(identity) {
		return Allowed
	}
	if count >= g.limit {
		return Denied
	}
	return Allowed
}

// Allow loads the stored count of usr and applies CheckAndConsume.
// Anonymous and exempt accounts are decided without touching the store.
func (g *Gate) Allow(ctx context.Context, usr *user.User) (Decision, error) {
	if usr.IsAnonymous() || g.IsExempt(usr.Email) {
		return Allowed, nil
	}

	count, err := g.store.GetGenerationCount(ctx, usr.ID)
	if err != nil {
		return Denied, err
	}

	return g.CheckAndConsume(usr.Email, count), nil
}

// Consume records one successful generation for usr.
func (g *Gate) Consume(ctx context.Context, usr *user.User) (int, error) {
	if usr.IsAnonymous() {
		return 0, nil
	}
	return g.store.IncrementGenerationCount(ctx, usr.ID, usr.Email)
}

// Reset sets the counter of usr back to zero, as happens on login.
func (g *Gate) Reset(ctx context.Context, usr *user.User) error {
	if usr.IsAnonymous() {
		return nil
	}
	return g.store.ResetGenerationCount(ctx, usr.ID, usr.Email)
}

// Clear drops the counter of userID, optionally inside transaction.
func (g *Gate) Clear(ctx context.Context, userID string, transaction *sql.Tx) error {
	if userID == "" {
		return nil
	}
	return g.store.DeleteGenerationCount(ctx, userID, transaction)
}

// Status reports the quota of usr.
func (g *Gate) Status(ctx context.Context, usr *user.User) (Status, error) {
	exempt := g.IsExempt(usr.Email)

	count, err := g.store.GetGenerationCount(ctx, usr.ID)
	if err != nil {
		return Status{}, err
	}

	remaining := g.limit - count
	if remaining < 0 {
		remaining = 0
	}
	if exempt {
		remaining = -1
	}

	return Status{
		Used:      count,
		Limit:     g.limit,
		Remaining: remaining,
		Exempt:    exempt,
	}, nil
}
