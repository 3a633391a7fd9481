package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nhle/company-tasks/internal/credential"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/notify"
	"github.com/nhle/company-tasks/internal/store"
)

const usage = `usage: tracker <command> [flags]

commands:
  serve         run the HTTP API and change feed
  board         open the terminal board as --user
  token         mint a local bearer token for --user
  seed          create a first company and admin profile
  secret set    store the signing secret in the OS keyring
  init          write a default config file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "board":
		err = runBoard(args)
	case "token":
		err = runToken(args, os.Stdout)
	case "seed":
		err = runSeed(args, os.Stdout)
	case "secret":
		err = runSecret(args, os.Stdout)
	case "init":
		err = runInit(args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("%s: %v", cmd, err)
	}
}

// env bundles what every subcommand needs after flag parsing.
type env struct {
	cfg    *model.AppConfig
	logger *log.Logger
	path   string
}

// newFlagSet returns a flag set carrying the flags shared by all subcommands.
// Call loadEnv after Parse.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", model.DefaultConfigPath(), "path to the config file")
	fs.String("db", "", "override database.path")
	fs.Bool("debug", false, "enable debug logging")
	return fs
}

func loadEnv(fs *pflag.FlagSet) (*env, error) {
	path, _ := fs.GetString("config")

	v := model.NewViper()
	if err := v.BindPFlag("database.path", fs.Lookup("db")); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	if fs.Lookup("addr") != nil {
		if err := v.BindPFlag("http.addr", fs.Lookup("addr")); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	cfg, err := model.LoadConfig(v, path)
	if err != nil {
		return nil, err
	}
	// An explicitly empty database.path means the default location.
	if cfg.Database.Path == "" {
		cfg.Database.Path = model.DefaultDatabasePath()
	}

	debug, _ := fs.GetBool("debug")
	return &env{cfg: cfg, logger: newLogger(cfg.Log.Level, debug), path: path}, nil
}

// newLogger builds the process logger. DEBUG=true in the environment
// forces debug level, like the --debug flag.
func newLogger(level string, debug bool) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		debug = true
	}
	if debug {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func (e *env) openStore() (*store.SQLiteStore, error) {
	path := e.cfg.Database.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	e.logger.WithField("path", path).Debug("store opened")
	return st, nil
}

// changeFeed wires the store's notifier. Without redis.url writes are only
// seen by this process; with it they are relayed to every instance.
// The returned stop function must be called on shutdown.
func (e *env) changeFeed(ctx context.Context, st *store.SQLiteStore) (*notify.Hub, func(), error) {
	hub := notify.NewHub()
	if e.cfg.Redis.URL == "" {
		st.SetNotifier(hub)
		return hub, func() {}, nil
	}

	opts, err := redis.ParseURL(e.cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis.url: %w", err)
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	bridge := notify.NewRedisBridge(rc, e.cfg.Redis.Channel, hub, e.logger)
	st.SetNotifier(bridge)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		bridge.Run(runCtx)
	}()

	e.logger.WithField("channel", e.cfg.Redis.Channel).Info("change feed relayed through redis")
	return hub, func() {
		cancel()
		<-done
		rc.Close()
	}, nil
}

// openVault opens the keyring next to the config file. Failures are not
// fatal: callers fall back to the configured secret.
func (e *env) openVault() *credential.Vault {
	vault, err := credential.Open(filepath.Dir(e.path))
	if err != nil {
		e.logger.WithError(err).Debug("keyring unavailable")
		return nil
	}
	return vault
}

func (e *env) signingSecret() (string, error) {
	secret, err := credential.SigningSecret(e.cfg.Auth.Secret, e.openVault())
	if errors.Is(err, credential.ErrNotFound) {
		return "", errors.New("no signing secret: set auth.secret, TRACKER_AUTH_SECRET, or run `tracker secret set`")
	}
	return secret, err
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
