// Package dispatch fans notification intents out to registered Web Push
// destinations. Delivery is best effort: every failure is absorbed, logged,
// and reported through Result values, so the state update that produced an
// intent can never be blocked by the push channel.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/clubblackout/reborn/internal/platform/timeouts"
	"github.com/clubblackout/reborn/internal/services/notifier/domain"
)

var (
	// ErrNoDestination indicates a player has no registered push destination.
	ErrNoDestination = errors.New("no push destination registered")
	// ErrDestinationGone indicates the push service reported the destination
	// as permanently invalid (expired or unsubscribed).
	ErrDestinationGone = errors.New("push destination permanently gone")
)

// Outcome classifies how delivery to one target player ended.
type Outcome string

const (
	// OutcomeDelivered means the push service accepted the notification.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeNoDestination means the player has no destination record.
	OutcomeNoDestination Outcome = "skipped_no_destination"
	// OutcomeMalformedDestination means the destination record is missing
	// its endpoint or crypto keys.
	OutcomeMalformedDestination Outcome = "skipped_malformed"
	// OutcomeFailedTransient means delivery failed in a retryable way. No
	// retry happens: the channel is fire and forget.
	OutcomeFailedTransient Outcome = "failed_transient"
	// OutcomeFailedPermanent means the push service reported the destination
	// gone. Recognized separately as a hook for future destination cleanup.
	OutcomeFailedPermanent Outcome = "failed_permanent"
	// OutcomeUnconfigured means no VAPID keys are configured and the whole
	// dispatch was a no-op.
	OutcomeUnconfigured Outcome = "skipped_unconfigured"
)

// Result records the delivery outcome for one target player.
type Result struct {
	PlayerID string
	Outcome  Outcome
	Err      error
}

// Destination is one player's Web Push endpoint with the keypair the push
// service issued for it.
type Destination struct {
	Endpoint string
	P256dh   string
	Auth     string
}

func (d Destination) valid() bool {
	return d.Endpoint != "" && d.P256dh != "" && d.Auth != ""
}

// VAPIDKeys hold the delivery credentials identifying this server to push
// services. Missing keys turn every dispatch into a logged no-op.
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	// Subject is the mailto: or https: contact handed to push services.
	Subject string
}

// Configured reports whether both halves of the keypair are present.
func (k VAPIDKeys) Configured() bool {
	return k.PublicKey != "" && k.PrivateKey != ""
}

// DestinationStore resolves a player's push destination within one game.
type DestinationStore interface {
	GetDestination(ctx context.Context, joinCode string, playerID string) (Destination, error)
}

// Sender delivers one payload to a destination with a TTL hint. A wrapped
// ErrDestinationGone marks the permanent failure class.
type Sender interface {
	Send(ctx context.Context, destination Destination, payload []byte, ttlSeconds int) error
}

// Payload is the JSON body the player's service worker renders.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// payloadTag groups notifications so the browser collapses bursts into one.
const payloadTag = "cb-push"

// Dispatcher resolves intent targets to destinations and delivers one
// notification per resolved destination.
type Dispatcher struct {
	keys       VAPIDKeys
	store      DestinationStore
	sender     Sender
	ttlSeconds int
	logf       func(format string, args ...any)
}

// NewDispatcher builds a dispatcher over the given destination lookup and
// transport.
func NewDispatcher(keys VAPIDKeys, store DestinationStore, sender Sender) *Dispatcher {
	return &Dispatcher{
		keys:       keys,
		store:      store,
		sender:     sender,
		ttlSeconds: timeouts.PushTTLSeconds,
		logf:       log.Printf,
	}
}

// Dispatch delivers one intent to every resolvable target. It returns one
// Result per target id, in target order, and never an error: resolution
// misses and transport failures are absorbed here.
func (d *Dispatcher) Dispatch(ctx context.Context, joinCode string, intent domain.Intent) []Result {
	results := make([]Result, 0, len(intent.TargetPlayerIDs))
	if d == nil || d.store == nil || d.sender == nil {
		return results
	}

	if !d.keys.Configured() {
		d.logf("dispatch: VAPID keys not configured, dropping %d notification(s) for game %s", len(intent.TargetPlayerIDs), joinCode)
		for _, playerID := range intent.TargetPlayerIDs {
			results = append(results, Result{PlayerID: playerID, Outcome: OutcomeUnconfigured})
		}
		return results
	}

	payload, err := json.Marshal(Payload{Title: intent.Title, Body: intent.Body, Tag: payloadTag})
	if err != nil {
		d.logf("dispatch: encode payload for game %s: %v", joinCode, err)
		for _, playerID := range intent.TargetPlayerIDs {
			results = append(results, Result{PlayerID: playerID, Outcome: OutcomeFailedTransient, Err: err})
		}
		return results
	}

	for _, playerID := range intent.TargetPlayerIDs {
		results = append(results, d.deliver(ctx, joinCode, playerID, payload))
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, joinCode string, playerID string, payload []byte) Result {
	destination, err := d.store.GetDestination(ctx, joinCode, playerID)
	if errors.Is(err, ErrNoDestination) {
		return Result{PlayerID: playerID, Outcome: OutcomeNoDestination}
	}
	if err != nil {
		d.logf("dispatch: resolve destination for player %s in game %s: %v", playerID, joinCode, err)
		return Result{PlayerID: playerID, Outcome: OutcomeFailedTransient, Err: err}
	}
	if !destination.valid() {
		return Result{PlayerID: playerID, Outcome: OutcomeMalformedDestination}
	}

	if err := d.sender.Send(ctx, destination, payload, d.ttlSeconds); err != nil {
		if errors.Is(err, ErrDestinationGone) {
			// Cleanup hook: the record could be deleted here once product
			// confirms expired subscriptions should be pruned.
			d.logf("dispatch: destination gone for player %s in game %s: %v", playerID, joinCode, err)
			return Result{PlayerID: playerID, Outcome: OutcomeFailedPermanent, Err: err}
		}
		d.logf("dispatch: web push to player %s in game %s failed: %v", playerID, joinCode, err)
		return Result{PlayerID: playerID, Outcome: OutcomeFailedTransient, Err: err}
	}
	return Result{PlayerID: playerID, Outcome: OutcomeDelivered}
}
