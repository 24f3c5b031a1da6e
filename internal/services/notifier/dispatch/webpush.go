package dispatch

import (
	"context"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/clubblackout/reborn/internal/platform/timeouts"
)

// WebPushSender delivers payloads over the Web Push protocol with VAPID
// authentication.
type WebPushSender struct {
	keys   VAPIDKeys
	client *http.Client
}

// NewWebPushSender builds a sender signing requests with the given keys.
func NewWebPushSender(keys VAPIDKeys) *WebPushSender {
	return &WebPushSender{
		keys:   keys,
		client: &http.Client{Timeout: timeouts.PushSend},
	}
}

// Send encrypts and posts one payload to the destination's push service.
// A 404 or 410 response wraps ErrDestinationGone; other non-2xx statuses
// return a plain error.
func (s *WebPushSender) Send(ctx context.Context, destination Destination, payload []byte, ttlSeconds int) error {
	subscription := &webpush.Subscription{
		Endpoint: destination.Endpoint,
		Keys: webpush.Keys{
			P256dh: destination.P256dh,
			Auth:   destination.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, subscription, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.keys.Subject,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
		TTL:             ttlSeconds,
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w (status %d)", ErrDestinationGone, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}
