package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bawdo/screenq/internal/config"
	"github.com/bawdo/screenq/managers"
	"github.com/bawdo/screenq/plugins/region"
	"github.com/bawdo/screenq/screener"
	"github.com/bawdo/screenq/store"
	"github.com/bawdo/screenq/transport"
)

// RootOptions holds state shared by every subcommand.
type RootOptions struct {
	ConfigFile string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand creates the screenq command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "screenq",
		Short: "Build, render and run stock screener filter trees",
		Long: `screenq builds AND/OR/EQ/BTWN/GT/LT filter trees, renders them as the
screener wire format, SQL or Graphviz DOT, posts them to the screener
endpoint and runs them against a local quotes table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			if cfg.File != "" {
				logger.Debug("config loaded", "file", cfg.File)
			}
			return nil
		},
	}

	// Global flags. Names map onto config keys through config.FlagKey.
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./screenq.yaml)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error|off)")
	pf.Duration("timeout", 0, "HTTP timeout")
	pf.String("user-agent", "", "HTTP User-Agent")
	pf.String("engine", "", "store engine (postgres|mysql|sqlite)")
	pf.String("dsn", "", "store DSN")
	pf.Int("size", 0, "result page size (1-250)")
	pf.Int("offset", 0, "result offset")
	pf.String("sort-field", "", "sort field")
	pf.String("sort-type", "", "sort direction (asc|desc)")
	pf.String("quote-type", "", "quote type (EQUITY|ETF|MUTUALFUND)")
	pf.StringSlice("region", nil, "restrict queries to these region codes")

	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewScreenCommand(opts))

	return cmd
}

func (o *RootOptions) transport() *transport.HTTP {
	topts := []transport.Option{transport.WithLogger(o.logger)}
	if o.cfg.Timeout > 0 {
		topts = append(topts, transport.WithTimeout(o.cfg.Timeout))
	}
	if o.cfg.UserAgent != "" {
		topts = append(topts, transport.WithUserAgent(o.cfg.UserAgent))
	}
	return transport.NewHTTP(topts...)
}

func (o *RootOptions) openStore(ctx context.Context) (*store.Store, error) {
	if o.cfg.Store.DSN == "" {
		return nil, errors.New("no store DSN configured (set --dsn or store.dsn)")
	}
	st, err := store.Open(ctx, o.cfg.Store.Engine, o.cfg.Store.DSN, store.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// loadQuery reads a query file and applies the region plugin when --region
// was given.
func (o *RootOptions) loadQuery(cmd *cobra.Command, path string) (*managers.Query, error) {
	q, err := loadQueryFile(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("region") {
		r := region.New(region.WithRegions(o.cfg.Regions...))
		if err := r.Validate(); err != nil {
			return nil, err
		}
		q.Use(r)
	}
	return q, nil
}

// NewReplCommand creates the interactive REPL command.
func NewReplCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Build filter trees interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd.Context(), opts)
		},
	}
}

// NewRenderCommand creates the render command.
func NewRenderCommand(opts *RootOptions) *cobra.Command {
	var format, dialect string
	var params bool
	cmd := &cobra.Command{
		Use:   "render <query-file>",
		Short: "Render a query file as JSON, SQL, pretty SQL, DOT or a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.loadQuery(cmd, args[0])
			if err != nil {
				return err
			}
			dialect = strings.ToLower(dialect)
			if !slices.Contains(dialectNames, dialect) {
				return fmt.Errorf("unknown dialect %q (%s)", dialect, strings.Join(dialectNames, ", "))
			}
			return renderQuery(cmd.OutOrStdout(), q, strings.ToLower(format), newVisitor(dialect, params))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json|sql|pretty|dot|tree)")
	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "SQL dialect (postgres|mysql|sqlite)")
	cmd.Flags().BoolVar(&params, "params", false, "render SQL with placeholders")
	return cmd
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(opts *RootOptions) *cobra.Command {
	var predefined []string
	var record, raw bool
	cmd := &cobra.Command{
		Use:   "fetch [query-file]",
		Short: "Post a query to the screener, or fetch predefined screens",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(predefined) == 0 {
				return errors.New("fetch needs a query file or --predefined")
			}
			ctx := cmd.Context()
			sopts := []screener.Option{
				screener.WithLogger(opts.logger),
				screener.WithEndpoints(opts.cfg.Endpoints),
				screener.WithBody(opts.cfg.Body),
			}
			if record {
				st, err := opts.openStore(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = st.Close() }()
				sopts = append(sopts, screener.WithRecorder(st))
			}
			sc := screener.New(opts.transport(), sopts...)
			out := cmd.OutOrStdout()
			show := func(resp map[string]any) error {
				if raw {
					return writeJSON(out, resp)
				}
				return renderResponse(out, resp)
			}

			if len(predefined) > 0 {
				all, err := sc.FetchPredefinedAll(ctx, opts.cfg.Body.Size, predefined...)
				if err != nil {
					return err
				}
				for _, name := range predefined {
					_, _ = fmt.Fprintf(out, "%s\n", name)
					if err := show(all[name]); err != nil {
						return err
					}
				}
				return nil
			}

			q, err := opts.loadQuery(cmd, args[0])
			if err != nil {
				return err
			}
			sc.SetQuery(q)
			resp, err := sc.Fetch(ctx)
			if err != nil {
				return err
			}
			return show(resp)
		},
	}
	cmd.Flags().StringSliceVar(&predefined, "predefined", nil, "predefined screen names ("+strings.Join(screener.PredefinedScreens(), ", ")+")")
	cmd.Flags().BoolVar(&record, "record", false, "record responses in the store")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw JSON response")
	return cmd
}

// NewScreenCommand creates the local screening command.
func NewScreenCommand(opts *RootOptions) *cobra.Command {
	var table string
	var limit int
	var explain bool
	cmd := &cobra.Command{
		Use:   "screen <query-file>",
		Short: "Run a query against a local quotes table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.loadQuery(cmd, args[0])
			if err != nil {
				return err
			}
			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if explain {
				sql, params, err := st.ScreenSQL(table, q, limit)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), sql)
				if len(params) > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "-- params: %v\n", params)
				}
				return nil
			}
			res, err := st.Screen(cmd.Context(), table, q, limit)
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "quotes", "table to screen")
	cmd.Flags().IntVarP(&limit, "limit", "n", store.MaxRows, "maximum rows")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the SQL instead of running it")
	return cmd
}
