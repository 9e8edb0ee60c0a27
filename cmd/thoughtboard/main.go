package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pbaille/thoughtboard/internal/api"
	"github.com/pbaille/thoughtboard/internal/config"
	"github.com/pbaille/thoughtboard/internal/dashboard"
	"github.com/pbaille/thoughtboard/internal/domain"
	"github.com/pbaille/thoughtboard/internal/render"
	"github.com/pbaille/thoughtboard/internal/store"
	"github.com/pbaille/thoughtboard/internal/thoughts"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	apiURL     string
	debug      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "thoughtboard",
		Short:        "Dashboard for a stream of generated thoughts",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "thoughts API base URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", true, "log debug messages")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(upstreamCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

// loadConfig applies command-line overrides on top of file and environment
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("api") {
		cfg.APIBaseURL = apiURL
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	render.Logger = debugLogger(cfg)
	return cfg, nil
}

func debugLogger(cfg *config.Config) *log.Logger {
	if !cfg.Debug {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "[DEBUG] ", log.LstdFlags)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var addr string
	var poll, refresh time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the thoughts API and serve the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("poll") {
				cfg.PollInterval = poll
			}
			if cmd.Flags().Changed("refresh") {
				cfg.RefreshInterval = refresh
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := debugLogger(cfg)
			client, err := thoughts.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, logger)
			if err != nil {
				return err
			}

			d := dashboard.New(client, dashboard.NewPage(), dashboard.Options{
				PollInterval:    cfg.PollInterval,
				RefreshInterval: cfg.RefreshInterval,
				Logger:          logger,
			})

			ctx, cancel := signalContext()
			defer cancel()

			handler := api.NewDashboardHandler(d, int(cfg.PollInterval/time.Second))
			server := api.New(cfg.Addr, handler, log.Default())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return d.Run(gctx)
			})
			g.Go(func() error {
				defer d.Stop()
				return server.Run(gctx)
			})

			log.Printf("Polling %s every %s, full refresh every %s", client.BaseURL(), cfg.PollInterval, cfg.RefreshInterval)
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "dashboard server address")
	cmd.Flags().DurationVar(&poll, "poll", dashboard.DefaultPollInterval, "change-detection poll interval")
	cmd.Flags().DurationVar(&refresh, "refresh", dashboard.DefaultRefreshInterval, "full refresh interval")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the latest thought and history once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := thoughts.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, debugLogger(cfg))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			var view render.TerminalView
			var all []domain.Thought
			var g errgroup.Group
			g.Go(func() error {
				view.Latest, view.LatestErr = client.Latest(ctx)
				if errors.Is(view.LatestErr, thoughts.ErrNotFound) {
					view.LatestErr = nil
				}
				return nil
			})
			g.Go(func() error {
				all, view.HistoryErr = client.All(ctx)
				return nil
			})
			_ = g.Wait()

			view.History = dashboard.HistoryEntries(all)
			view.HistoryEmpty = view.HistoryErr == nil && len(all) == 0

			fmt.Fprint(cmd.OutOrStdout(), render.Terminal(view))
			return nil
		},
	}
}

func openStore(cfg *config.Config) (*store.Store, error) {
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.DBPath)
}

func upstreamCmd() *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "upstream",
		Short: "Serve the thoughts API from a local database for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext()
			defer cancel()

			server := api.New(addr, api.NewUpstreamHandler(s, cfg.SeedPrompt, log.Default()), log.Default())
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8000", "upstream server address")
	cmd.Flags().StringVar(&dbPath, "db", "", "database path")
	return cmd
}

func addCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "add [thought]",
		Short: "Record a thought in the development database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.AddThought(strings.Join(args, " "), cfg.SeedPrompt)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added thought %s at %s\n", t.ID, t.Timestamp)
			fmt.Fprintf(cmd.OutOrStdout(), "Input: %s\n", t.Input)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return config.Print(cfg, cmd.OutOrStdout())
		},
	}
}
