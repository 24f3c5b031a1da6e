package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clubblackout/reborn/internal/services/notifier/dispatch"
	"github.com/clubblackout/reborn/internal/services/notifier/domain"
	"github.com/clubblackout/reborn/internal/services/notifier/storage"
)

const (
	tracerName = "github.com/clubblackout/reborn/internal/services/notifier/app"

	// maxDocumentBytes bounds request bodies on the trigger endpoints.
	maxDocumentBytes = 256 << 10
)

type intentDispatcher interface {
	Dispatch(ctx context.Context, joinCode string, intent domain.Intent) []dispatch.Result
}

type handlers struct {
	games          storage.GameStore
	subscriptions  storage.SubscriptionStore
	dispatcher     intentDispatcher
	vapidPublicKey string

	now   func() time.Time
	newID func() string
}

func newHandlers(games storage.GameStore, subscriptions storage.SubscriptionStore, dispatcher intentDispatcher, vapidPublicKey string) handlers {
	return handlers{
		games:          games,
		subscriptions:  subscriptions,
		dispatcher:     dispatcher,
		vapidPublicKey: vapidPublicKey,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// dispatchSummary reports what happened to a trigger's notifications. Push
// failures are reported here, never as a trigger error status.
type dispatchSummary struct {
	Intents   int `json:"intents"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (h handlers) handleGameUpdate(w http.ResponseWriter, r *http.Request) {
	joinCode := strings.TrimSpace(r.PathValue("joinCode"))
	if joinCode == "" {
		writeJSONError(w, http.StatusNotFound, "game not found")
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "notifier.game_update",
		trace.WithAttributes(attribute.String("game.join_code", joinCode)))
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "read request body")
		return
	}
	var after domain.GameDocument
	if err := json.Unmarshal(body, &after); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid game document")
		return
	}

	var before domain.GameDocument
	prior, err := h.games.GetGame(ctx, joinCode)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(prior.DocumentJSON), &before); err != nil {
			log.Printf("notifier: stored game document for %s is unreadable, treating as empty: %v", joinCode, err)
			before = domain.GameDocument{}
		}
	case errors.Is(err, storage.ErrNotFound):
		// First version of this game we have seen.
	default:
		log.Printf("notifier: load game %s: %v", joinCode, err)
		writeJSONError(w, http.StatusInternalServerError, "load game document")
		return
	}

	record := storage.GameRecord{
		JoinCode:     joinCode,
		DocumentJSON: string(body),
		UpdatedAt:    h.now(),
	}
	if err := h.games.PutGame(ctx, record); err != nil {
		log.Printf("notifier: store game %s: %v", joinCode, err)
		writeJSONError(w, http.StatusInternalServerError, "store game document")
		return
	}

	intents := domain.GameTransitions(before, after)
	span.SetAttributes(attribute.Int("notify.intents", len(intents)))
	writeJSON(w, http.StatusAccepted, h.dispatchAll(ctx, joinCode, intents))
}

func (h handlers) handlePrivateStateUpdate(w http.ResponseWriter, r *http.Request) {
	joinCode := strings.TrimSpace(r.PathValue("joinCode"))
	playerID := strings.TrimSpace(r.PathValue("playerID"))
	if joinCode == "" || playerID == "" {
		writeJSONError(w, http.StatusNotFound, "player not found")
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "notifier.private_state_update",
		trace.WithAttributes(
			attribute.String("game.join_code", joinCode),
			attribute.String("game.player_id", playerID),
		))
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "read request body")
		return
	}
	var after domain.PrivateStateDocument
	if err := json.Unmarshal(body, &after); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid private state document")
		return
	}

	var before domain.PrivateStateDocument
	prior, err := h.games.GetPrivateState(ctx, joinCode, playerID)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(prior.DocumentJSON), &before); err != nil {
			log.Printf("notifier: stored private state for %s/%s is unreadable, treating as empty: %v", joinCode, playerID, err)
			before = domain.PrivateStateDocument{}
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		log.Printf("notifier: load private state %s/%s: %v", joinCode, playerID, err)
		writeJSONError(w, http.StatusInternalServerError, "load private state")
		return
	}

	record := storage.PrivateStateRecord{
		JoinCode:     joinCode,
		PlayerID:     playerID,
		DocumentJSON: string(body),
		UpdatedAt:    h.now(),
	}
	if err := h.games.PutPrivateState(ctx, record); err != nil {
		log.Printf("notifier: store private state %s/%s: %v", joinCode, playerID, err)
		writeJSONError(w, http.StatusInternalServerError, "store private state")
		return
	}

	var intents []domain.Intent
	if intent, ok := domain.RoleAssigned(playerID, before, after); ok {
		intents = append(intents, intent)
	}
	writeJSON(w, http.StatusAccepted, h.dispatchAll(ctx, joinCode, intents))
}

type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h handlers) handlePutSubscription(w http.ResponseWriter, r *http.Request) {
	joinCode := strings.TrimSpace(r.PathValue("joinCode"))
	playerID := strings.TrimSpace(r.PathValue("playerID"))
	if joinCode == "" || playerID == "" {
		writeJSONError(w, http.StatusNotFound, "player not found")
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid subscription")
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" || strings.TrimSpace(req.Keys.P256dh) == "" || strings.TrimSpace(req.Keys.Auth) == "" {
		writeJSONError(w, http.StatusBadRequest, "endpoint and keys are required")
		return
	}

	record := storage.SubscriptionRecord{
		ID:        h.newID(),
		JoinCode:  joinCode,
		PlayerID:  playerID,
		Endpoint:  strings.TrimSpace(req.Endpoint),
		P256dh:    strings.TrimSpace(req.Keys.P256dh),
		Auth:      strings.TrimSpace(req.Keys.Auth),
		CreatedAt: h.now(),
	}
	if err := h.subscriptions.PutSubscription(r.Context(), record); err != nil {
		log.Printf("notifier: store subscription %s/%s: %v", joinCode, playerID, err)
		writeJSONError(w, http.StatusInternalServerError, "store subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	joinCode := strings.TrimSpace(r.PathValue("joinCode"))
	playerID := strings.TrimSpace(r.PathValue("playerID"))
	if joinCode == "" || playerID == "" {
		writeJSONError(w, http.StatusNotFound, "player not found")
		return
	}

	if err := h.subscriptions.DeleteSubscription(r.Context(), joinCode, playerID); err != nil {
		log.Printf("notifier: delete subscription %s/%s: %v", joinCode, playerID, err)
		writeJSONError(w, http.StatusInternalServerError, "delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) handlePublicKey(w http.ResponseWriter, _ *http.Request) {
	key := strings.TrimSpace(h.vapidPublicKey)
	if key == "" {
		writeJSONError(w, http.StatusNotFound, "push delivery is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": key})
}

func (h handlers) dispatchAll(ctx context.Context, joinCode string, intents []domain.Intent) dispatchSummary {
	summary := dispatchSummary{Intents: len(intents)}
	for _, intent := range intents {
		for _, result := range h.dispatcher.Dispatch(ctx, joinCode, intent) {
			switch result.Outcome {
			case dispatch.OutcomeDelivered:
				summary.Delivered++
			case dispatch.OutcomeFailedTransient, dispatch.OutcomeFailedPermanent:
				summary.Failed++
			default:
				summary.Skipped++
			}
		}
	}
	return summary
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("notifier: encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
