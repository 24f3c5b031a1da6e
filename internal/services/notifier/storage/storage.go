// Package storage defines the persisted record shapes and store boundaries
// for the notifier service.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// GameRecord stores the latest persisted version of one game document.
// The document body is kept as the backend-provided JSON so unknown fields
// survive round trips.
type GameRecord struct {
	JoinCode     string
	DocumentJSON string
	UpdatedAt    time.Time
}

// PrivateStateRecord stores one player's latest private document version.
type PrivateStateRecord struct {
	JoinCode     string
	PlayerID     string
	DocumentJSON string
	UpdatedAt    time.Time
}

// SubscriptionRecord stores one player's Web Push destination for one game.
// At most one subscription exists per (join code, player id) pair.
type SubscriptionRecord struct {
	ID        string
	JoinCode  string
	PlayerID  string
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}

// GameStore persists game and private-state document versions.
type GameStore interface {
	GetGame(ctx context.Context, joinCode string) (GameRecord, error)
	PutGame(ctx context.Context, record GameRecord) error
	GetPrivateState(ctx context.Context, joinCode string, playerID string) (PrivateStateRecord, error)
	PutPrivateState(ctx context.Context, record PrivateStateRecord) error
}

// SubscriptionStore persists push destinations keyed by game and player.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, joinCode string, playerID string) (SubscriptionRecord, error)
	PutSubscription(ctx context.Context, record SubscriptionRecord) error
	DeleteSubscription(ctx context.Context, joinCode string, playerID string) error
}
