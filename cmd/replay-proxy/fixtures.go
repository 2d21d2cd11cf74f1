package main

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/richshaffer/replay"
	"github.com/richshaffer/replay/logger"
)

func newFixturesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures [host-prefix]",
		Short: "List recorded fixtures",
		Long: `List the fixtures recorded under the configured record directory,
optionally limited to a host prefix such as "www.example.com" or
"www.example.com/api".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level)
			rt, err := cfg.Replay.NewRoundTripper(nil, log, nil)
			if err != nil {
				return err
			}
			fixtures, err := rt.ListFixtures(prefix)
			if err != nil {
				return err
			}
			renderFixtures(cmd.OutOrStdout(), fixtures)
			return nil
		},
	}
}

func renderFixtures(w io.Writer, fixtures []*replay.Pairing) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Method", "URL", "Status", "Hash", "Recorded"})
	for _, p := range fixtures {
		status := "-"
		if p.Response != nil {
			status = p.Response.Kind.String()
			if p.Response.Kind == replay.KindHTTP {
				status = strconv.Itoa(p.Response.StatusCode)
			}
		}
		recorded := ""
		if !p.RecordedAt.IsZero() {
			recorded = p.RecordedAt.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{p.Request.Method, p.Request.URL, status, p.Identity.Hash, recorded})
	}
	t.AppendFooter(table.Row{"", "Total", len(fixtures)})
	t.Render()
}
