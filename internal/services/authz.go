package services

import (
	"context"
	"fmt"
	"time"

	"famfin/internal/core"
)

// Clock is the wall-clock source used for "today" and audit timestamps.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func (c Clock) today() core.Date {
	return core.Today(c.now())
}

// UserDirectory answers whether a user id resolves to a user.
type UserDirectory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}

// Authorizer decides which user a caller may act on.
type Authorizer struct {
	users UserDirectory
}

func NewAuthorizer(users UserDirectory) *Authorizer {
	return &Authorizer{users: users}
}

// ResolveTarget returns the user id the caller acts on. requested is zero
// when the caller did not name a user, which means themselves. Members may
// only act on themselves; admins may act on any existing user.
func (a *Authorizer) ResolveTarget(ctx context.Context, caller core.Caller, requested int64) (int64, error) {
	if caller.UserID <= 0 {
		return 0, core.Forbidden("no authenticated caller")
	}
	if requested == 0 || requested == caller.UserID {
		return caller.UserID, nil
	}
	if !caller.Admin {
		return 0, core.Forbidden("user %d may not act on behalf of user %d", caller.UserID, requested)
	}
	exists, err := a.users.UserExists(ctx, requested)
	if err != nil {
		return 0, fmt.Errorf("resolve target user: %w", err)
	}
	if !exists {
		return 0, core.NotFound("user", requested)
	}
	return requested, nil
}
