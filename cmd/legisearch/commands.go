package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WessleyAI/legisearch/engine/catalog"
	"github.com/WessleyAI/legisearch/engine/ingest"
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/pkg/config"
	"github.com/WessleyAI/legisearch/pkg/metrics"
	"github.com/WessleyAI/legisearch/pkg/natsutil"
)

// withRuntime builds the pipeline clients, runs f and releases the clients.
func (a *app) withRuntime(ctx context.Context, reg *metrics.Registry, f func(*runtime) error) error {
	rt, err := build(ctx, a.cfg, a.log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			a.log.Warn("close clients", "error", err)
		}
	}()
	return f(rt)
}

// serveMetrics starts the metrics endpoint when one is configured.
func (a *app) serveMetrics(ctx context.Context) *metrics.Registry {
	reg := metrics.New()
	if a.cfg.Metrics.Addr != "" {
		reg.ServeAsync(ctx, a.cfg.Metrics.Addr, a.log)
	}
	return reg
}

// sessionFlags binds --year, --code and --limit.
type sessionFlags struct {
	year  int
	code  string
	limit int
}

func (f *sessionFlags) bind(cmd *cobra.Command, withSession bool) {
	if withSession {
		cmd.Flags().IntVar(&f.year, "year", 0, "session year")
		cmd.Flags().StringVar(&f.code, "code", "R", "session code: R, S1 or S2")
		_ = cmd.MarkFlagRequired("year")
	}
	cmd.Flags().IntVar(&f.limit, "limit", -1, "max bills per session (default from config, 0 = all)")
}

func (f *sessionFlags) session() (legis.Session, error) {
	return legis.ParseSession(strconv.Itoa(f.year) + f.code)
}

func (f *sessionFlags) resolveLimit(cfg config.Config) int {
	if f.limit < 0 {
		return cfg.Pipeline.Limit
	}
	return f.limit
}

func newBillCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "bill <bill-id>",
		Short: "Index the selected documents of one bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withRuntime(ctx, nil, func(rt *runtime) error {
				var report ingest.RunReport
				report.AddBill(ingest.ProcessBill(ctx, rt.deps, args[0]))
				return printReport(cmd.OutOrStdout(), "bill "+args[0], report, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newSessionCmd(a *app) *cobra.Command {
	var (
		flags  sessionFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Index every bill of one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.session()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			reg := a.serveMetrics(ctx)
			return a.withRuntime(ctx, reg, func(rt *runtime) error {
				report := ingest.ProcessSession(ctx, rt.deps, s, flags.resolveLimit(a.cfg))
				return printReport(cmd.OutOrStdout(), "session "+s.String(), report, asJSON)
			})
		},
	}
	flags.bind(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newAllCmd(a *app) *cobra.Command {
	var (
		flags  sessionFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Index every known session, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg := a.serveMetrics(ctx)
			return a.withRuntime(ctx, reg, func(rt *runtime) error {
				report := ingest.ProcessSessions(ctx, rt.deps, legis.KnownSessions, flags.resolveLimit(a.cfg))
				return printReport(cmd.OutOrStdout(), "all sessions", report, asJSON)
			})
		},
	}
	flags.bind(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newSessionsCmd(a *app) *cobra.Command {
	var stored bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the known sessions, or those stored in the catalog",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"config": "none",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions := legis.KnownSessions
			if stored {
				cfg, err := config.Load(a.configPath)
				if err != nil {
					return err
				}
				cat, err := catalog.Open(cmd.Context(), cfg.Catalog.Path)
				if err != nil {
					return err
				}
				defer cat.Close()
				if sessions, err = cat.Sessions(cmd.Context()); err != nil {
					return err
				}
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", s.Year, s.Code, s.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "list the sessions stored in the sqlite catalog")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve bill and session indexing requests from NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg := metrics.New()
			return a.withRuntime(ctx, reg, func(rt *runtime) error {
				nc, err := nats.Connect(a.cfg.NATS.URL, nats.Name("legisearch"))
				if err != nil {
					return configErr("nats", err)
				}
				defer nc.Close()

				consumer, err := ingest.StartConsumer(nc, rt.deps)
				if err != nil {
					return err
				}
				a.log.Info("serving", "nats", a.cfg.NATS.URL,
					"subjects", []string{ingest.BillSubject, ingest.SessionSubject}, "queue", ingest.QueueGroup)

				g, gctx := errgroup.WithContext(ctx)
				if a.cfg.Metrics.Addr != "" {
					g.Go(func() error { return reg.Serve(gctx, a.cfg.Metrics.Addr) })
				}
				g.Go(func() error {
					<-gctx.Done()
					a.log.Info("draining")
					return consumer.Drain()
				})
				return g.Wait()
			})
		},
	}
}

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		flags  sessionFlags
		billID string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Send an indexing request to a running server and wait for its report",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"config": "none",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			nc, err := nats.Connect(cfg.NATS.URL, nats.Name("legisearch-enqueue"))
			if err != nil {
				return configErr("nats", err)
			}
			defer nc.Close()

			ctx := cmd.Context()
			var reply ingest.Report
			switch {
			case billID != "":
				reply, err = natsutil.Request[ingest.BillRequest, ingest.Report](ctx, nc, ingest.BillSubject,
					ingest.BillRequest{BillID: billID})
			case flags.year != 0:
				reply, err = natsutil.Request[ingest.SessionRequest, ingest.Report](ctx, nc, ingest.SessionSubject,
					ingest.SessionRequest{Year: flags.year, Code: flags.code, Limit: max(flags.limit, 0)})
			default:
				return fmt.Errorf("enqueue: pass --bill or --year")
			}
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), reply.Request, reply.Report, asJSON)
		},
	}
	cmd.Flags().StringVar(&billID, "bill", "", "bill id to index")
	cmd.Flags().IntVar(&flags.year, "year", 0, "session year to index")
	cmd.Flags().StringVar(&flags.code, "code", "R", "session code")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "max bills (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the report of every request the workers finish",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"config": "none",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			nc, err := nats.Connect(cfg.NATS.URL, nats.Name("legisearch-watch"))
			if err != nil {
				return configErr("nats", err)
			}
			defer nc.Close()

			out := cmd.OutOrStdout()
			sub, err := natsutil.Subscribe(nc, ingest.ReportSubject, a.log, func(_ context.Context, r ingest.Report) {
				if err := printReport(out, r.Request, r.Report, asJSON); err != nil {
					a.log.Warn("print report", "request", r.Request, "error", err)
				}
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest.json>...",
		Short: "Load session manifests into the sqlite catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, err := catalog.Open(ctx, a.cfg.Catalog.Path)
			if err != nil {
				return configErr("catalog", err)
			}
			defer cat.Close()

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				manifests, err := catalog.DecodeManifests(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, m := range manifests {
					st, err := cat.Import(ctx, m)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					a.log.Info("imported", "file", path, "session", m.Session.String(),
						"bills_new", st.BillsNew, "bills_updated", st.BillsUpdate,
						"documents", st.Documents, "legislators", st.Legislators)
				}
			}
			return nil
		},
	}
}

func newGraphSyncCmd(a *app) *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "graph-sync",
		Short: "Copy one session of the sqlite catalog into Neo4j",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.session()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cat, err := catalog.Open(ctx, a.cfg.Catalog.Path)
			if err != nil {
				return configErr("catalog", err)
			}
			defer cat.Close()
			g, err := openGraph(ctx, a.cfg.Catalog.Neo4j)
			if err != nil {
				return err
			}
			defer g.Close(context.Background())

			st, err := g.Sync(ctx, cat, s, flags.resolveLimit(a.cfg), a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d bills saved, %d skipped\n", s, st.Saved, st.Skipped)
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the catalog schema and the vector store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if a.cfg.Catalog.Backend == config.CatalogSQLite {
				cat, err := catalog.Open(ctx, a.cfg.Catalog.Path)
				if err != nil {
					return configErr("catalog", err)
				}
				v, err := cat.SchemaVersion(ctx)
				cat.Close()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "catalog %s at schema %s\n", a.cfg.Catalog.Path, v)
			}

			rt := &runtime{}
			defer rt.Close()
			if _, err := openVectors(ctx, a.cfg.Vector, a.cfg.Embedding.Dimensions, rt); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s ready (%d dims)\n", a.cfg.Vector.Backend, a.cfg.Vector.Collection, a.cfg.Embedding.Dimensions)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cfg.Embedding.APIKey != "" {
				cfg.Embedding.APIKey = "<redacted>"
			}
			if cfg.Catalog.Neo4j.Password != "" {
				cfg.Catalog.Neo4j.Password = "<redacted>"
			}
			data, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"config": "none",
		},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("legisearch version %s\n", version)
		},
	}
}

// jsonReport is the --json shape of a report.
type jsonReport struct {
	Scope          string  `json:"scope"`
	AveragePerBill float64 `json:"average_per_bill"`
	ingest.RunReport
}

func marshalReport(scope string, r ingest.RunReport) ([]byte, error) {
	return json.MarshalIndent(jsonReport{Scope: scope, AveragePerBill: r.AveragePerBill(), RunReport: r}, "", "  ")
}
