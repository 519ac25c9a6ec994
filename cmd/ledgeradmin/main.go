// Command ledgeradmin runs maintenance tasks against the ledger database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/JonMunkholm/ledger/internal/admin"
	"github.com/JonMunkholm/ledger/internal/config"
	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/events"
	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/JonMunkholm/ledger/internal/mail"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range admin.Commands(connect, os.Stdout) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// connect loads the configuration and builds a Service on a fresh pool.
// Emails are only logged; ingest publishes upload events when Kafka is
// configured.
func connect(ctx context.Context) (*admin.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	var publisher events.Publisher = events.Nop{}
	if cfg.Events.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.UploadTopic, cfg.Events.WriteTimeout)
	}
	svc, err := core.NewService(pool, cfg, &mail.LogMailer{}, publisher)
	if err != nil {
		publisher.Close()
		pool.Close()
		return nil, err
	}
	return &admin.Runtime{
		Service: svc,
		Migrate: func(ctx context.Context) error { return database.Migrate(ctx, pool) },
		Close: func() {
			publisher.Close()
			pool.Close()
		},
	}, nil
}
