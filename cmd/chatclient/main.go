// chatclient is a terminal chat client that stays connected to a
// WebSocket chat server, reconnecting with exponential backoff.
// Usage: go run ./cmd/chatclient --config configs/chatclient.example.yaml
//
// Flags override the config file:
//
//	-url    server endpoint (ws:// or wss://)
//	-name   display name (random UserNNN when empty)
//	-plain  line mode instead of the full-screen UI
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rickgao/chatlink/internal/chatui"
	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/metrics"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/version"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	url := flag.String("url", "", "chat server URL, overrides server.url")
	name := flag.String("name", "", "display name, overrides user.name")
	plain := flag.Bool("plain", false, "line mode: read stdin, print messages to stdout")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("chatclient", version.String())
		return
	}

	cfg, err := loadConfig(*configPath, *url, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatclient: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := setupLogger(cfg.Log, *plain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatclient: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting chatclient",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"url", cfg.Server.URL,
	)

	if err := run(cfg, *plain, logger); err != nil {
		logger.Error("chatclient failed", "error", err)
		fmt.Fprintf(os.Stderr, "chatclient: %v\n", err)
		os.Exit(1)
	}
	logger.Info("chatclient stopped")
}

func loadConfig(path, url, name string) (*config.ChatConfig, error) {
	var cfg *config.ChatConfig
	if path == "" {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.LoadWithDefaults(path)
		if err != nil {
			return nil, err
		}
	}

	if url != "" {
		cfg.Server.URL = url
	}
	if name != "" {
		cfg.User.Name = name
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// setupLogger writes to stderr in line mode. The full-screen UI owns the
// terminal, so it logs to log.file or nowhere.
func setupLogger(cfg config.LogConfig, plain bool) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if !plain {
		w = io.Discard
		if cfg.File != "" {
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open log file: %w", err)
			}
			w = f
			closeFn = func() { f.Close() }
		}
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

func identity(cfg config.UserConfig) model.User {
	if cfg.ID == "" {
		return model.NewUser(cfg.Name)
	}
	u := model.User{ID: cfg.ID, Name: cfg.Name}
	if u.Name == "" {
		u.Name = model.RandomName()
	}
	return u
}

func run(cfg *config.ChatConfig, plain bool, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	user := identity(cfg.User)
	logger.Info("identity", "id", user.ID, "name", user.Name)

	opts := []connection.Option{connection.WithLogger(logger.With("component", "connection"))}
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		opts = append(opts, connection.WithHooks(metrics.New(registry)))
	}

	var (
		observer connection.Observer
		bridge   *chatui.Bridge
		liner    *chatui.Plain
	)
	if plain {
		liner = chatui.NewPlain(nil, user, os.Stdout, logger)
		observer = liner.Observer()
	} else {
		bridge = chatui.NewBridge(logger.With("component", "ui"))
		observer = bridge.Observer()
	}

	mgr := connection.NewManager(cfg.ManagerConfig(), observer, opts...)
	defer mgr.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           newMux(cfg.Metrics.Path, registry, mgr),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := mgr.Connect(user); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	g.Go(func() error {
		// The UI exiting ends the whole program.
		defer cancel()
		if plain {
			liner.SetSession(mgr)
			return liner.Run(gctx, os.Stdin)
		}
		return runTUI(gctx, mgr, bridge, user, cfg.UI, logger)
	})

	err := g.Wait()
	mgr.Close()
	return err
}

func runTUI(ctx context.Context, mgr connection.Manager, bridge *chatui.Bridge, user model.User, cfg config.UIConfig, logger *slog.Logger) error {
	m := chatui.New(mgr, user, chatui.Options{
		StatusTimeout: cfg.StatusTimeout,
		HistoryLimit:  cfg.HistoryLimit,
		Logger:        logger.With("component", "ui"),
	})
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	bridge.Attach(p)

	if _, err := p.Run(); err != nil {
		// Cancellation from a signal is a normal exit.
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
