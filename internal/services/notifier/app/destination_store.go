package server

import (
	"context"
	"errors"

	"github.com/clubblackout/reborn/internal/services/notifier/dispatch"
	"github.com/clubblackout/reborn/internal/services/notifier/storage"
)

// destinationStore narrows subscription records to dispatch destinations.
type destinationStore struct {
	subscriptions storage.SubscriptionStore
}

func (s destinationStore) GetDestination(ctx context.Context, joinCode string, playerID string) (dispatch.Destination, error) {
	record, err := s.subscriptions.GetSubscription(ctx, joinCode, playerID)
	if errors.Is(err, storage.ErrNotFound) {
		return dispatch.Destination{}, dispatch.ErrNoDestination
	}
	if err != nil {
		return dispatch.Destination{}, err
	}
	return dispatch.Destination{
		Endpoint: record.Endpoint,
		P256dh:   record.P256dh,
		Auth:     record.Auth,
	}, nil
}
