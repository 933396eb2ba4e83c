package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/config"
	"github.com/rebeliceyang/lazytable/internal/engine"
	"github.com/rebeliceyang/lazytable/internal/export"
	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/persistence"
	"github.com/rebeliceyang/lazytable/internal/state"
)

type queryFlags struct {
	search        string
	searchColumns []string
	searchMode    string
	sort          string
	filters       []string
	logic         string
	page          int
	pageSize      int
	format        string
	output        string
	title         string
	all           bool
	stateQuery    string
}

func newQueryCmd() *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Apply search, filters, sort and paging to the configured source and export the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.search, "search", "", "free-text search term")
	flags.StringSliceVar(&f.searchColumns, "search-column", nil, "restrict search to these columns")
	flags.StringVar(&f.searchMode, "search-mode", "", "any or all")
	flags.StringVar(&f.sort, "sort", "", "sort key, optionally key:asc or key:desc")
	flags.StringArrayVar(&f.filters, "filter", nil, "field=value quick filter or field:operator:value[:valueTo] condition")
	flags.StringVar(&f.logic, "logic", "", "and or or, for the filter conditions")
	flags.IntVar(&f.page, "page", 0, "page number")
	flags.IntVar(&f.pageSize, "page-size", 0, "rows per page")
	flags.StringVar(&f.format, "format", "csv", "csv, html or json")
	flags.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	flags.StringVar(&f.title, "title", "lazytable", "title of the HTML export")
	flags.BoolVar(&f.all, "all", false, "export every filtered row instead of the current page")
	flags.StringVar(&f.stateQuery, "state-url", "", "query string carrying saved state, for url persistence")
	return cmd
}

func runQuery(cmd *cobra.Command, f *queryFlags) error {
	format, err := export.ParseFormat(f.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Get()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tbl, err := openTable(ctx, cfg)
	if err != nil {
		return err
	}
	defer tbl.close()

	persister, closePersister, err := openPersister(cfg)
	if err != nil {
		return err
	}
	defer closePersister()
	if f.stateQuery != "" {
		if err := persister.SetQuery(f.stateQuery); err != nil {
			return err
		}
	}

	mode := engine.ModeClient
	if cfg.Table.DataMode == "server" {
		mode = engine.ModeServer
	}
	eng, err := engine.New(ctx, engine.Options{
		State: state.Config{
			Columns:         tbl.columns,
			PageSize:        cfg.Table.PageSize,
			PageSizeOptions: cfg.Table.PageSizeOptions,
			SearchMode:      models.SearchMode(cfg.Table.SearchMode),
		},
		Mode:      mode,
		Infinite:  cfg.Table.InfiniteScroll,
		Records:   tbl.records,
		Source:    tbl.source,
		Persister: persister,
		Locale:    locale(cfg),
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := applyFlags(cmd, eng.Store(), f); err != nil {
		return err
	}

	waitIdle(eng)
	if msg := eng.Error(); msg != "" {
		return fmt.Errorf("query failed: %s", msg)
	}

	view := eng.View()
	columns, rows := eng.ExportRows()
	if !f.all {
		rows = view.Visible
	}

	var out io.Writer = cmd.OutOrStdout()
	if f.output != "" {
		if err := export.ToFile(f.output, format, f.title, columns, rows); err != nil {
			return err
		}
	} else if err := export.Write(out, format, f.title, columns, rows); err != nil {
		return err
	}

	log.Info("query done",
		"page", view.CurrentPage,
		"total_pages", view.TotalPages,
		"total_items", view.TotalItems,
		"showing_from", view.Range.Start,
		"showing_to", view.Range.End)
	if persister.Mode() == persistence.ModeURL {
		fmt.Fprintf(os.Stderr, "state: ?%s\n", persister.Query())
	}
	return nil
}

// waitIdle waits until no query is in flight. A result can trigger one more
// query when it moves the page back into range.
func waitIdle(eng *engine.Engine) {
	for {
		eng.Wait()
		if !eng.Loading() {
			return
		}
	}
}

// applyFlags maps explicitly set flags onto store transitions. Flags run after
// the saved state is restored so they win over it.
func applyFlags(cmd *cobra.Command, store *state.Store, f *queryFlags) error {
	flags := cmd.Flags()

	if flags.Changed("search") {
		store.SetSearchTerm(f.search)
	}
	if flags.Changed("search-column") {
		store.SetSearchColumns(f.searchColumns)
	}
	if flags.Changed("search-mode") {
		mode := models.SearchMode(strings.ToLower(f.searchMode))
		if !mode.IsValid() {
			return fmt.Errorf("invalid --search-mode %q", f.searchMode)
		}
		store.SetSearchMode(mode)
	}
	if flags.Changed("sort") {
		sort, err := parseSort(f.sort)
		if err != nil {
			return err
		}
		store.SetSort(sort)
	}
	if flags.Changed("filter") {
		store.ClearFilters()
		for _, raw := range f.filters {
			if err := applyFilter(store, raw); err != nil {
				return err
			}
		}
	}
	if flags.Changed("logic") {
		store.SetLogic(models.FilterLogic(strings.ToLower(f.logic)))
	}
	if flags.Changed("page-size") {
		pagination := store.State().Pagination
		if !pagination.HasPageSizeOption(f.pageSize) {
			return fmt.Errorf("page size %d is not one of %v", f.pageSize, pagination.PageSizeOptions)
		}
		store.SetPageSize(f.pageSize)
	}
	if flags.Changed("page") {
		store.SetPage(f.page)
	}
	return nil
}

// parseSort reads key, key:asc or key:desc. An empty value clears the sort.
func parseSort(s string) (*models.SortState, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	key, dir, _ := strings.Cut(s, ":")
	switch strings.ToLower(dir) {
	case "", "asc":
		return &models.SortState{Key: key, Direction: models.SortAsc}, nil
	case "desc":
		return &models.SortState{Key: key, Direction: models.SortDesc}, nil
	}
	return nil, fmt.Errorf("invalid sort direction %q", dir)
}

// applyFilter reads field=value as a quick filter and
// field:operator[:value[:valueTo]] as a condition
func applyFilter(store *state.Store, raw string) error {
	if field, value, ok := strings.Cut(raw, "="); ok && !strings.Contains(field, ":") {
		store.SetSimpleFilter(strings.TrimSpace(field), parseValue(value))
		return nil
	}

	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 2 {
		return fmt.Errorf("invalid --filter %q", raw)
	}
	cond := models.FilterCondition{
		Field:    strings.TrimSpace(parts[0]),
		Operator: models.FilterOperator(strings.TrimSpace(parts[1])),
	}
	if len(parts) > 2 {
		if cond.Operator == models.OpIn || cond.Operator == models.OpNotIn {
			var list []any
			for _, item := range strings.Split(parts[2], ",") {
				list = append(list, parseValue(item))
			}
			cond.Value = list
		} else {
			cond.Value = parseValue(parts[2])
		}
	}
	if len(parts) > 3 {
		cond.ValueTo = parseValue(parts[3])
	}
	if err := store.AddCondition(cond); err != nil {
		return fmt.Errorf("invalid --filter %q: %w", raw, err)
	}
	return nil
}

// parseValue turns numeric and boolean text into numbers and bools
func parseValue(s string) any {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func locale(cfg *config.Config) language.Tag {
	tag, err := language.Parse(cfg.Table.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}
