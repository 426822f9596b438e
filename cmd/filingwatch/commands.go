package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/filingwatch/internal/edgar"
	"github.com/seenimoa/filingwatch/internal/stream"
	"github.com/seenimoa/filingwatch/pkg/utils"
)

func init() {
	for _, c := range []*cobra.Command{resolveCmd, snapshotCmd, filingsCmd, docCmd, feedCmd} {
		c.Flags().Bool("json", false, "print JSON instead of a table")
	}

	snapshotCmd.Flags().Duration("ttl", 0, "freshness bound (default from config)")

	filingsCmd.Flags().String("forms", "", "comma-separated form types, e.g. 10-K,8-K")
	filingsCmd.Flags().Int("limit", 20, "maximum number of filings (0 for all)")

	feedCmd.Flags().String("form", "", "form type filter")
	feedCmd.Flags().Int("limit", 40, "maximum number of entries")

	watchCmd.Flags().String("forms", "", "comma-separated form types to watch")
	watchCmd.Flags().Duration("interval", 0, "poll interval (default from config)")
	watchCmd.Flags().Int("max-events", 0, "stop after this many new filings (default from config)")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Resolve Command ---

var resolveCmd = &cobra.Command{
	Use:   "resolve [ticker...]",
	Short: "Resolve tickers to CIKs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := buildClient(cfg, logger)
		if err != nil {
			return err
		}
		tickers, err := tickerArgs(args)
		if err != nil {
			return err
		}
		results, err := client.ResolveMany(cmd.Context(), tickers)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(out, results)
		}
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			if r.Err != nil {
				rows = append(rows, []string{r.Ticker, "-", r.Err.Error()})
				continue
			}
			rows = append(rows, []string{r.Ticker, r.CIK, edgar.PadCIK(r.CIK)})
		}
		fmt.Fprintln(out, renderTable([]string{"Ticker", "CIK", "Padded"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight}, shouldColorize(out)))
		return nil
	},
}

// tickerArgs normalizes ticker arguments, dropping blanks.
func tickerArgs(args []string) ([]string, error) {
	tickers := utils.NormalizeTickers(args)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers given")
	}
	return tickers, nil
}

// --- Snapshot Command ---

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [cik|ticker]",
	Short: "Show an entity's submissions header",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := buildClient(cfg, logger)
		if err != nil {
			return err
		}
		cik, err := client.ResolveIdentifier(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = cfg.Cache.SnapshotTTL()
		}
		snap, err := client.GetSnapshot(cmd.Context(), cik, ttl)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(out, snap)
		}
		colorize := shouldColorize(out)
		lines := renderSectionHeader(snap.Name, colorize)
		lines = append(lines,
			renderStatusLine("CIK", statusInfo, snap.CIK, colorize),
			renderStatusLine("Tickers", statusInfo, fmt.Sprint(snap.Tickers), colorize),
			renderStatusLine("Exchanges", statusInfo, fmt.Sprint(snap.Exchanges), colorize),
			renderStatusLine("SIC", statusInfo, snap.SIC+" "+snap.SICDescription, colorize),
			renderStatusLine("Fiscal year end", statusInfo, snap.FiscalYearEnd, colorize),
			renderStatusLine("Recent filings", statusInfo, humanize.Comma(int64(snap.Filings.Recent.Len())), colorize),
			renderStatusLine("Older pages", statusInfo, strconv.Itoa(len(snap.Filings.Files)), colorize),
		)
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		return nil
	},
}

// --- Filings Command ---

var filingsCmd = &cobra.Command{
	Use:   "filings [cik|ticker]",
	Short: "List an entity's recent filings, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := buildClient(cfg, logger)
		if err != nil {
			return err
		}
		cik, err := client.ResolveIdentifier(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		formsFlag, _ := cmd.Flags().GetString("forms")
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := client.ListFilings(cmd.Context(), cik, edgar.ParseForms(formsFlag), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(out, records)
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Filed", "Form", "Accession", "Accepted", "Size", "Description"},
			filingRows(records, time.Now()),
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			shouldColorize(out)))
		return nil
	},
}

// --- Doc Command ---

var docCmd = &cobra.Command{
	Use:   "doc [cik|ticker] [accession]",
	Short: "Print the text of a filing's primary document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := buildClient(cfg, logger)
		if err != nil {
			return err
		}
		cik, err := client.ResolveIdentifier(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		doc, err := client.DocumentText(cmd.Context(), cik, utils.FormatAccession(args[1]))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(out, doc)
		}
		fmt.Fprintf(out, "%s %s (%s)\n%s\n\n%s\n", doc.Form, doc.AccessionNumber,
			humanize.Bytes(uint64(doc.Bytes)), doc.URL, doc.Text)
		return nil
	},
}

// --- Feed Command ---

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the EDGAR current-filings feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := buildClient(cfg, logger)
		if err != nil {
			return err
		}
		form, _ := cmd.Flags().GetString("form")
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := client.CurrentFilings(cmd.Context(), form, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(out, entries)
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Form", "CIK", "Company", "Accession", "Filed"},
			feedRows(entries, time.Now()),
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
			shouldColorize(out)))
		return nil
	},
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch [cik|ticker...]",
	Short: "Stream new filings for one or more entities",
	Long: `Poll each entity and print a JSON line whenever its latest filing
changes. The first poll reports the current latest filing. Each watch stops
after --max-events new filings or on Ctrl-C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, poller, err := buildClient(cfg, logger)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		formsFlag, _ := cmd.Flags().GetString("forms")
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = cfg.Stream.DefaultInterval()
		}
		maxEvents, _ := cmd.Flags().GetInt("max-events")
		if maxEvents <= 0 {
			maxEvents = cfg.Stream.DefaultMaxEvents
		}

		subs := make([]stream.Subscription, 0, len(args))
		for _, arg := range args {
			cik, err := client.ResolveIdentifier(ctx, arg)
			if err != nil {
				return err
			}
			sub, err := poller.Validate(stream.Subscription{
				CIK:          cik,
				Forms:        edgar.ParseForms(formsFlag),
				PollInterval: interval,
				MaxEvents:    maxEvents,
			})
			if err != nil {
				return err
			}
			subs = append(subs, sub)
		}

		var mu sync.Mutex
		out := cmd.OutOrStdout()
		emit := func(v any) {
			mu.Lock()
			defer mu.Unlock()
			_ = json.NewEncoder(out).Encode(v)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, sub := range subs {
			g.Go(func() error {
				st, err := poller.Subscribe(gctx, sub)
				if err != nil {
					return err
				}
				for ev := range st.Events() {
					emit(ev)
				}
				emit(st.Wait())
				return nil
			})
		}
		if err := g.Wait(); err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}
