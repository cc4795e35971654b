// Package tabhouse parses the daemon's flags and launches the outbox relay
// runtime.
package tabhouse

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/louisbranch/tabhouse/internal/app"
	"github.com/louisbranch/tabhouse/internal/bus"
	"github.com/louisbranch/tabhouse/internal/outbox"
	entrypoint "github.com/louisbranch/tabhouse/internal/platform/cmd"
	"github.com/louisbranch/tabhouse/internal/storage/sqlite"
)

// Config holds daemon configuration.
type Config struct {
	DBPath       string        `env:"TABHOUSE_DB_PATH" envDefault:"data/tabhouse.db"`
	PollInterval time.Duration `env:"TABHOUSE_POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"TABHOUSE_BATCH_SIZE" envDefault:"100"`
	MaxAttempts  int           `env:"TABHOUSE_MAX_ATTEMPTS" envDefault:"10"`
	RetryBackoff time.Duration `env:"TABHOUSE_RETRY_BACKOFF" envDefault:"1s"`

	AMQPHost     string `env:"TABHOUSE_AMQP_HOST"`
	AMQPPort     int    `env:"TABHOUSE_AMQP_PORT" envDefault:"5672"`
	AMQPUser     string `env:"TABHOUSE_AMQP_USER" envDefault:"guest"`
	AMQPPassword string `env:"TABHOUSE_AMQP_PASSWORD" envDefault:"guest"`
	AMQPVHost    string `env:"TABHOUSE_AMQP_VHOST" envDefault:"/"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Outbox poll interval")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Outbox entries per drain pass")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Delivery attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.StringVar(&cfg.AMQPHost, "amqp-host", cfg.AMQPHost, "RabbitMQ host; empty disables broker publication")
	fs.IntVar(&cfg.AMQPPort, "amqp-port", cfg.AMQPPort, "RabbitMQ port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the daemon: it opens the store, wires the app, and drains the
// outbox until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTabhouse, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		opts := app.Options{
			RelayOptions: []outbox.RelayOption{
				outbox.WithInterval(cfg.PollInterval),
				outbox.WithBatchSize(cfg.BatchSize),
				outbox.WithMaxAttempts(cfg.MaxAttempts),
				outbox.WithBackoff(cfg.RetryBackoff),
			},
		}
		if cfg.AMQPHost != "" {
			publisher, err := bus.DialAMQP(bus.AMQPConfig{
				Host:     cfg.AMQPHost,
				Port:     cfg.AMQPPort,
				User:     cfg.AMQPUser,
				Password: cfg.AMQPPassword,
				VHost:    cfg.AMQPVHost,
			})
			if err != nil {
				return err
			}
			defer publisher.Close()
			opts.Publisher = publisher
			log.Printf("publishing tab events to %s:%d", cfg.AMQPHost, cfg.AMQPPort)
		}

		a := app.New(store, opts)
		log.Printf("relaying outbox from %s every %s", cfg.DBPath, cfg.PollInterval)
		if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
