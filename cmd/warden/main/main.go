package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/backup"
	"github.com/fuad-daoud/warden/config"
	health "github.com/fuad-daoud/warden/http"
	"github.com/fuad-daoud/warden/integrations/custom_http"
	"github.com/fuad-daoud/warden/integrations/spaces"
	"github.com/fuad-daoud/warden/layers/db"
	"github.com/fuad-daoud/warden/logger/dlog"
	"github.com/fuad-daoud/warden/platform"
	"github.com/fuad-daoud/warden/platform/commands"
	"github.com/fuad-daoud/warden/tasks"
)

var (
	version = "unset"
	commit  = "unset"
	date    = "unset"
)

var cli struct {
	Config   string `short:"c" help:"Path to the YAML config file." env:"WARDEN_CONFIG" type:"path"`
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)."`

	Run struct {
	} `cmd:"" help:"Run the bot (default)." default:"1"`

	Validate struct {
	} `cmd:"" help:"Check the configuration and exit."`

	Snapshot struct {
		GuildID string `arg:"" name:"guild-id" help:"Guild to capture."`
		Output  string `short:"o" help:"File to write, defaults to the name serverbackup uses." type:"path"`
	} `cmd:"" help:"Write a guild snapshot to a file without starting the gateway."`

	Version kong.VersionFlag `short:"v" help:"Display version."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("warden"),
		kong.Description("A Discord moderation, utility and server backup bot."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)},
	)

	cfg, err := config.Load(cli.Config)
	ctx.FatalIfErrorf(err)
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	logger, err := dlog.Setup(dlog.Config{
		Level:       cfg.Logging.Level,
		Dir:         cfg.Logging.Dir,
		Files:       cfg.Logging.Files,
		ArchiveCron: cfg.Logging.ArchiveCron,
	})
	ctx.FatalIfErrorf(err)

	switch ctx.Command() {
	case "validate":
		if err = cfg.Validate(); err == nil {
			logger.Info("Configuration is valid", "store", cfg.Store.Driver, "spaces", cfg.Spaces.Enabled)
		}
	case "snapshot <guild-id>":
		err = snapshot(cfg, logger.Logger, cli.Snapshot.GuildID, cli.Snapshot.Output)
	default:
		err = run(cfg, logger.Logger)
	}
	if err != nil {
		logger.Error("Exiting", "err", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func run(cfg *config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()
	scheduler := tasks.NewScheduler(store, log.With("component", "scheduler"))

	bot, err := platform.NewBot(platform.BotConfig{Token: cfg.Discord.Token, Prefix: cfg.Discord.Prefix, Logger: log})
	if err != nil {
		return err
	}

	deps := commands.Deps{
		Client:    bot.Platform(),
		Scheduler: scheduler,
		Fetcher: &custom_http.DefaultClient{
			Client:   &http.Client{Timeout: 30 * time.Second},
			MaxBytes: cfg.Backup.MaxSnapshotBytes,
		},
		RestoreDelay:     cfg.Backup.RestoreDelay,
		RestoreTimeout:   cfg.Commands.RestoreTimeout,
		MaxSnapshotBytes: cfg.Backup.MaxSnapshotBytes,
		Prefix:           cfg.Discord.Prefix,
		Logger:           log,
	}
	if cfg.Spaces.Enabled {
		archive, err := spaces.New(spaces.Config{
			Endpoint: cfg.Spaces.Endpoint,
			Region:   cfg.Spaces.Region,
			Bucket:   cfg.Spaces.Bucket,
			Key:      cfg.Spaces.Key,
			Secret:   cfg.Spaces.Secret,
			Prefix:   cfg.Spaces.Prefix,
		})
		if err != nil {
			return err
		}
		deps.Archive = archive
	}
	handlers, err := commands.New(deps)
	if err != nil {
		return err
	}
	bot.Handle(commands.NewDispatcher(handlers.Registry(), bot.Platform(), commands.DispatcherConfig{
		Prefix:  cfg.Discord.Prefix,
		Timeout: cfg.Commands.Timeout,
		Logger:  log,
	}))

	if err = scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	if err = bot.Open(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		bot.Close(closeCtx)
	}()
	if cfg.Discord.SyncCommands {
		if err = bot.SyncCommands(ctx, handlers.Registry().Specs(), cfg.CommandGuildID()); err != nil {
			log.Error("Failed to sync application commands", "err", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- health.Serve(ctx, cfg.HTTP.Addr, health.NewRouter(bot, log), log)
	}()

	log.Info("Bot is now running. Press CTRL-C to exit.", "prefix", cfg.Discord.Prefix, "addr", cfg.HTTP.Addr)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		log.Info("Graceful shutdown", "signal", s.String())
		cancel()
		return <-serveErr
	case err = <-serveErr:
		return err
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (tasks.Store, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := tasks.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Task store opened", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return store, func() { _ = store.Close() }, nil
	case "neo4j":
		conn, err := db.Connect(ctx, db.Config{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return tasks.NewGraphStore(conn), func() { conn.Close(context.Background()) }, nil
	default:
		log.Warn("Tasks are kept in memory and will not survive a restart")
		return tasks.NewMemoryStore(), func() {}, nil
	}
}

func snapshot(cfg *config.Config, log *slog.Logger, guild, output string) error {
	if cfg.Discord.Token == "" {
		return errors.New("discord token is not configured")
	}
	guildID, err := snowflake.Parse(guild)
	if err != nil {
		return fmt.Errorf("guild id %q: %w", guild, err)
	}
	bot, err := platform.NewBot(platform.BotConfig{Token: cfg.Discord.Token, Logger: log})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	snap, err := backup.Produce(ctx, bot.Platform(), guildID)
	if err != nil {
		return err
	}
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	if output == "" {
		output = backup.FileName(guildID, time.Now())
	}
	if err = os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	log.Info("Snapshot written", "guild", guildID, "file", output, "roles", len(snap.Roles), "channels", len(snap.Channels))
	return nil
}
