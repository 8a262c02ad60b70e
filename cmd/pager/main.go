// Command pager pages through a SQLite table, optionally caching windows in
// Redis.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/agentuity/go-paging/env"
	"github.com/agentuity/go-paging/paging"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pager",
		Short:         "Page through a SQLite table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("db", "", "SQLite database path (env "+env.DatabaseEnv+")")
	flags.String("table", "", "table to read")
	flags.String("fields", "", "selected columns, default *")
	flags.String("where", "", "SQL condition")
	flags.String("order", "", "ORDER BY expression")
	flags.String("group", "", "GROUP BY expression")
	flags.String("field", "", "print or sum only this column")
	flags.Int("page", 0, "page number, enables paging")
	flags.Int("size", 0, "page size, enables paging")
	flags.String("redis", "", "redis URL for the response cache (env "+env.RedisURLEnv+")")
	flags.Duration("cache-ttl", 0, "cached window lifetime, default 5m")
	flags.Float64("staleness", 0, "declared staleness chance of the table")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error, none)")

	items := &cobra.Command{
		Use:   "items",
		Short: "Print the current page, or a window with --offset and --limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, func(p *engine, cfg Config) error {
				var opts []paging.ItemsOption
				if cmd.Flags().Changed("offset") {
					offset, _ := cmd.Flags().GetInt("offset")
					opts = append(opts, paging.Offset(offset))
				}
				if cmd.Flags().Changed("limit") {
					limit, _ := cmd.Flags().GetInt("limit")
					opts = append(opts, paging.Limit(limit))
				}
				rows, err := p.Items(cmd.Context(), opts...)
				if err != nil {
					return err
				}
				return printRows(cmd.OutOrStdout(), rows, cfg.Field)
			})
		},
	}
	items.Flags().Int("offset", 0, "window start, negative counts from the end")
	items.Flags().Int("limit", 0, "window length")

	count := &cobra.Command{
		Use:   "count",
		Short: "Print the number of rows, and pages when paged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, func(p *engine, cfg Config) error {
				n, err := p.Count(cmd.Context())
				if err != nil {
					return err
				}
				if !cfg.paged() {
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return nil
				}
				pages, err := p.PageCount(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows, page %d of %d\n", n, p.Page(), pages)
				return nil
			})
		},
	}

	sample := &cobra.Command{
		Use:   "sample <n>",
		Short: "Print n rows evenly spread over the table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid sample size %q", args[0])
			}
			return withEngine(cmd, func(p *engine, cfg Config) error {
				rows, err := p.ItemsEvenlyDistributed(cmd.Context(), n)
				if err != nil {
					return err
				}
				return printRows(cmd.OutOrStdout(), rows, cfg.Field)
			})
		},
	}

	random := &cobra.Command{
		Use:   "random",
		Short: "Print one random row, optionally biased toward the head",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bias, _ := cmd.Flags().GetFloat64("bias")
			return withEngine(cmd, func(p *engine, cfg Config) error {
				row, ok, err := p.RandomItemBiased(cmd.Context(), bias)
				if err != nil || !ok {
					return err
				}
				return printRows(cmd.OutOrStdout(), []paging.Row{row}, cfg.Field)
			})
		},
	}
	random.Flags().Float64("bias", 0.5, "expected normalized index, in (0, .5]")

	sum := &cobra.Command{
		Use:   "sum",
		Short: "Print the sum of --field over every row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, func(p *engine, cfg Config) error {
				if cfg.Field == "" {
					return errors.New("sum requires --field")
				}
				total, err := paging.Sum(cmd.Context(), p, cfg.Field)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(total, 'f', -1, 64))
				return nil
			})
		},
	}

	invalidate := &cobra.Command{
		Use:   "invalidate",
		Short: "Retire every cached window of the query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, func(p *engine, _ Config) error {
				if !p.CacheEnabled() {
					return errors.New("invalidate requires --redis")
				}
				return p.Change(cmd.Context())
			})
		},
	}

	root.AddCommand(items, count, sample, random, sum, invalidate)
	return root
}

func withEngine(cmd *cobra.Command, fn func(p *engine, cfg Config) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := env.NewLogger(cmd)
	p, release, err := openEngine(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer release()
	return fn(p, cfg)
}

// printRows writes one line per row: the value of field when set, otherwise
// the row as JSON.
func printRows(w io.Writer, rows []paging.Row, field string) error {
	for _, row := range rows {
		if field != "" {
			v, ok := row[field]
			if !ok {
				return errors.Newf("no column %q", field)
			}
			fmt.Fprintln(w, v)
			continue
		}
		buf, err := json.Marshal(row)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(buf))
	}
	return nil
}
