// Package main provides the linkreaper CLI entrypoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/checker"
	"github.com/lukemcguire/linkreaper/config"
	"github.com/lukemcguire/linkreaper/logger"
	"github.com/lukemcguire/linkreaper/result"
	"github.com/lukemcguire/linkreaper/source"
	"github.com/lukemcguire/linkreaper/store"
	"github.com/lukemcguire/linkreaper/tui"
	"github.com/lukemcguire/linkreaper/urlutil"
)

// Exit codes.
const (
	exitOK     = 0
	exitBroken = 1
	exitUsage  = 2
	exitFailed = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, os.Getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := source.Open(cfg.Bookmarks)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}
	records, err := loadRecords(ctx, src, cfg.Folder, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}

	var history *store.Store
	if cfg.History != "" {
		history, err = store.Open(cfg.History)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailed
		}
		defer func() { _ = history.Close() }()
	}
	recordHistory := func(ctx context.Context, rep *result.Report) error {
		if history == nil {
			return nil
		}
		if err := history.SaveRun(ctx, rep.RunID, rep); err != nil {
			log.Error("save run", logger.Error(err))
			return fmt.Errorf("record history: %w", err)
		}
		if err := history.ApplyStreaks(ctx, rep); err != nil {
			log.Error("load failure streaks", logger.Error(err))
			return fmt.Errorf("read history: %w", err)
		}
		return nil
	}

	chk := checker.New(cfg.Checker(), nil, log)
	session := chk.NewSession(records)
	log.Info("checking bookmarks",
		logger.String("source", cfg.Bookmarks),
		logger.Int("bookmarks", session.Len()),
		logger.Bool("strict", cfg.Strict),
	)

	if cfg.NoTUI {
		return runHeadless(ctx, cancel, cfg, session, records, recordHistory, stdout, stderr)
	}

	model := tui.NewModel(ctx, cancel, session, bookmark.NewEditor(src), records).WithReportHook(recordHistory)
	program := tea.NewProgram(model)

	finalModel, err := program.Run()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}

	finalTUIModel := finalModel.(tui.Model)
	if finalTUIModel.HasBrokenLinks() {
		return exitBroken
	}
	return exitOK
}

// loadRecords flattens the bookmark tree, or the subtree of folderID, and
// drops well-formed bookmarks that are not web or local links (javascript:,
// chrome://). Malformed URLs are kept so the checker reports them.
func loadRecords(ctx context.Context, src bookmark.Source, folderID string, log logger.Logger) ([]*bookmark.Record, error) {
	root, err := src.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	if folderID != "" {
		folder, ok := bookmark.Folders(root)[folderID]
		if !ok {
			return nil, fmt.Errorf("folder %s: %w", folderID, bookmark.ErrNotFound)
		}
		root = folder
	}

	all := bookmark.Flatten(root)
	records := make([]*bookmark.Record, 0, len(all))
	for _, rec := range all {
		if urlutil.IsCheckable(rec.URL) {
			records = append(records, rec)
		}
	}
	if ignored := len(all) - len(records); ignored > 0 {
		log.Info("ignoring non-web bookmarks", logger.Int("count", ignored))
	}
	return records, nil
}

// runHeadless checks without the TUI and writes the report to stdout.
func runHeadless(ctx context.Context, cancel context.CancelFunc, cfg config.Config, session *checker.Session,
	records []*bookmark.Record, hook tui.ReportHook, stdout, stderr io.Writer) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "Stopping after the current batch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	rep, err := session.Run(ctx, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}
	if err := hook(context.WithoutCancel(ctx), rep); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}

	if err := writeReport(stdout, cfg, rep, records); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}
	if rep.Stats.Broken() > 0 {
		return exitBroken
	}
	return exitOK
}

func writeReport(w io.Writer, cfg config.Config, rep *result.Report, records []*bookmark.Record) error {
	links := selectResults(rep, records, cfg)
	switch cfg.Format {
	case config.FormatJSON:
		return result.WriteJSON(w, links)
	case config.FormatCSV:
		return result.WriteCSV(w, links)
	default:
		if cfg.Status == "" {
			view := *rep
			view.Results = links
			result.PrintResults(w, &view)
			return nil
		}
		result.PrintLinks(w, links)
		result.PrintSummary(w, rep)
		return nil
	}
}

// selectResults applies --status, --search and --sort to the checked
// records and returns their results. Records the session never reached
// have no result and are left out. Run must have returned: record statuses
// are read directly.
func selectResults(rep *result.Report, records []*bookmark.Record, cfg config.Config) []result.LinkResult {
	byID := make(map[string]result.LinkResult, len(rep.Results))
	for _, res := range rep.Results {
		byID[res.ID] = res
	}

	q := bookmark.Query{
		Search:   cfg.Search,
		Sort:     bookmark.SortField(cfg.Sort),
		Desc:     cfg.Desc,
		PageSize: len(records),
	}
	switch cfg.Status {
	case "":
	case config.StatusBroken:
		q.Broken = true
	default:
		status, err := bookmark.ParseStatus(cfg.Status)
		if err != nil {
			return nil
		}
		q.Status = &status
	}

	page := q.Apply(records)
	links := make([]result.LinkResult, 0, len(page.Items))
	for _, rec := range page.Items {
		res, ok := byID[rec.ID]
		if !ok {
			continue
		}
		links = append(links, res)
	}
	return links
}
