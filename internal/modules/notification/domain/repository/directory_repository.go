package repository

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// UserDirectory is the read-only content-store lookup used to enrich payloads.
type UserDirectory interface {
	FindUserByID(ctx context.Context, userID string) (*UserSummary, error)
}

type UserSummary struct {
	ID   string
	Name string
}

// FollowStore answers "which people does this user follow".
type FollowStore interface {
	ListFollowedPersonIDs(ctx context.Context, userID string) ([]string, error)
	Follow(ctx context.Context, userID, personID string) error
	Unfollow(ctx context.Context, userID, personID string) error
}
