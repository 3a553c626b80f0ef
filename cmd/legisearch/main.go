// Command legisearch indexes legislative bill documents for semantic search:
// it selects bill versions, cleans and chunks their text, attaches bill
// metadata and writes embeddings to a vector store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries the loaded configuration and logger to every subcommand.
type app struct {
	configPath string
	logFormat  string
	logLevel   string

	cfg config.Config
	log *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, legis.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "legisearch",
		Short:         "Index legislative bill documents for semantic search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("LEGISEARCH_CONFIG"), "path to a TOML config file")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newBillCmd(a),
		newSessionCmd(a),
		newAllCmd(a),
		newSessionsCmd(a),
		newServeCmd(a),
		newEnqueueCmd(a),
		newWatchCmd(a),
		newImportCmd(a),
		newGraphSyncCmd(a),
		newMigrateCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and builds the logger. Commands that do not
// touch any backend skip validation.
func (a *app) load(cmd *cobra.Command) error {
	if cmd.Annotations["config"] == "none" {
		a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = cfg.Log.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(a.log)
	return nil
}
