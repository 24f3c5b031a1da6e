// Package notifier parses notifier command flags and composes the push
// notification service entrypoint.
package notifier

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/clubblackout/reborn/internal/platform/cmd"
	server "github.com/clubblackout/reborn/internal/services/notifier/app"
	"github.com/clubblackout/reborn/internal/services/notifier/dispatch"
	"github.com/clubblackout/reborn/internal/services/notifier/storage/sqlite"
)

// Config holds notifier command configuration.
type Config struct {
	HTTPAddr        string `env:"CLUB_BLACKOUT_HTTP_ADDR" envDefault:":8090"`
	DBPath          string `env:"CLUB_BLACKOUT_DB_PATH"   envDefault:"notifier.db"`
	APISecret       string `env:"CLUB_BLACKOUT_API_SECRET"`
	VAPIDPublicKey  string `env:"CLUB_BLACKOUT_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"CLUB_BLACKOUT_VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"CLUB_BLACKOUT_VAPID_SUBJECT" envDefault:"mailto:ops@clubblackout.app"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "notifier HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path")
	fs.StringVar(&cfg.APISecret, "api-secret", cfg.APISecret, "shared secret for trigger endpoint tokens")
	fs.StringVar(&cfg.VAPIDPublicKey, "vapid-public-key", cfg.VAPIDPublicKey, "VAPID public key for Web Push")
	fs.StringVar(&cfg.VAPIDPrivateKey, "vapid-private-key", cfg.VAPIDPrivateKey, "VAPID private key for Web Push")
	fs.StringVar(&cfg.VAPIDSubject, "vapid-subject", cfg.VAPIDSubject, "VAPID contact subject")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens storage and serves the notifier until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceNotifier, func(context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("notifier: close sqlite store: %v", err)
			}
		}()

		keys := dispatch.VAPIDKeys{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
		}
		if err := server.Run(ctx, server.Config{
			HTTPAddr:      cfg.HTTPAddr,
			APISecret:     cfg.APISecret,
			VAPID:         keys,
			Games:         store,
			Subscriptions: store,
			Sender:        dispatch.NewWebPushSender(keys),
		}); err != nil {
			return fmt.Errorf("serve notifier: %w", err)
		}
		return nil
	})
}
