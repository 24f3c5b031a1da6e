// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between boundaries and makes the
// durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// PushSend caps one Web Push delivery attempt to a push service.
const PushSend = 10 * time.Second

// PushTTLSeconds is the time-to-live hint handed to push services. A
// notification undelivered after an hour is stale for a party game.
const PushTTLSeconds = 3600
