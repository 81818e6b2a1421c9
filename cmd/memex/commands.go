package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/memex-index/internal/backup"
	"github.com/standardbeagle/memex-index/internal/filters"
	"github.com/standardbeagle/memex-index/internal/index"
	"github.com/standardbeagle/memex-index/internal/ingest"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/mcp"
	"github.com/standardbeagle/memex-index/internal/model"
)

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Only pages with this tag"},
		&cli.StringSliceFlag{Name: "domain", Usage: "Only pages on this domain or hostname"},
		&cli.StringSliceFlag{Name: "exclude-domain", Usage: "Drop pages on this domain or hostname"},
		&cli.StringSliceFlag{Name: "list", Usage: "Only pages in this list"},
	}
}

func filterParams(c *cli.Context) filters.Params {
	slice := func(name string) []string {
		if !c.IsSet(name) {
			return nil
		}
		return c.StringSlice(name)
	}
	return filters.Params{
		Tags:           slice("tag"),
		Domains:        slice("domain"),
		DomainsExclude: slice("exclude-domain"),
		Lists:          slice("list"),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() < n {
		return fmt.Errorf("usage: memex %s", usage)
	}
	return nil
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "index",
			Usage:     "Index page request JSON files",
			ArgsUsage: "<file.json>...",
			Action:    indexCommand,
		},
		{
			Name:      "search",
			Aliases:   []string{"s"},
			Usage:     "Find pages containing every term",
			ArgsUsage: "<term>...",
			Flags: append([]cli.Flag{
				&cli.IntFlag{Name: "offset", Usage: "Skip this many results"},
				&cli.IntFlag{Name: "size", Aliases: []string{"n"}, Usage: "Results per page (search.page_size when 0)"},
				&cli.BoolFlag{Name: "full", Usage: "Print full indexed documents as JSON"},
			}, filterFlags()...),
			Action: searchCommand,
		},
		{
			Name:   "filter",
			Usage:  "Print the URLs allowed and denied by tag, domain and list filters",
			Flags:  filterFlags(),
			Action: filterCommand,
		},
		{
			Name:      "get",
			Usage:     "Print a page's indexed document",
			ArgsUsage: "<id>",
			Action:    getCommand,
		},
		{
			Name:      "delete",
			Aliases:   []string{"rm"},
			Usage:     "Remove pages from the index",
			ArgsUsage: "<id>...",
			Action:    deleteCommand,
		},
		{
			Name:  "tag",
			Usage: "Change a page's tags",
			Subcommands: []*cli.Command{
				{Name: "add", ArgsUsage: "<id> <tag>...", Action: tagCommand(func(ctx context.Context, id string, tags []string) error { return ix.AddTagsConcurrent(ctx, id, tags) })},
				{Name: "set", ArgsUsage: "<id> <tag>...", Action: tagCommand(func(ctx context.Context, id string, tags []string) error { return ix.SetTagsConcurrent(ctx, id, tags) })},
				{Name: "del", ArgsUsage: "<id> <tag>...", Action: tagCommand(func(ctx context.Context, id string, tags []string) error { return ix.DelTagsConcurrent(ctx, id, tags) })},
			},
		},
		{
			Name:  "list",
			Usage: "Change a page's list membership",
			Subcommands: []*cli.Command{
				{Name: "add", ArgsUsage: "<id> <list>", Action: listCommand(true)},
				{Name: "remove", ArgsUsage: "<id> <list>", Action: listCommand(false)},
			},
		},
		{
			Name:  "timestamp",
			Usage: "Add or remove a page visit or bookmark",
			Subcommands: []*cli.Command{
				{
					Name:      "add",
					ArgsUsage: "<id> <ms>",
					Flags: []cli.Flag{
						&cli.BoolFlag{Name: "bookmark", Usage: "Record a bookmark instead of a visit"},
						&cli.StringFlag{Name: "meta", Usage: "JSON object stored with the timestamp"},
					},
					Action: timestampCommand(true),
				},
				{
					Name:      "del",
					ArgsUsage: "<id> <ms>",
					Flags:     []cli.Flag{&cli.BoolFlag{Name: "bookmark"}},
					Action:    timestampCommand(false),
				},
			},
		},
		{
			Name:      "suggest",
			Usage:     "Complete a domain or tag",
			ArgsUsage: "domains|tags <prefix>",
			Flags:     []cli.Flag{&cli.IntFlag{Name: "limit", Value: 10}},
			Action:    suggestCommand,
		},
		{
			Name:  "recent",
			Usage: "List recently visited pages",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 20},
				&cli.Int64Flag{Name: "before", Usage: "Only visits before this millisecond timestamp"},
			},
			Action: recentCommand,
		},
		{
			Name:   "stats",
			Usage:  "Show page and key counts",
			Action: statsCommand,
		},
		{
			Name:   "verify",
			Usage:  "Check every document against its derived entries",
			Action: verifyCommand,
		},
		{
			Name:  "dump",
			Usage: "Write the whole index as chunked JSON",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "dir", Usage: "Output directory (dump.dir)"},
				&cli.IntFlag{Name: "chunk-size", Usage: "Records per chunk (dump.chunk_size)"},
			},
			Action: dumpCommand,
		},
		{
			Name:      "restore",
			Usage:     "Replace the index contents with a dump",
			ArgsUsage: "<dir>",
			Action:    restoreCommand,
		},
		{
			Name:  "watch",
			Usage: "Index page request files dropped into a directory",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "dir", Usage: "Inbox directory (watch.dir)"},
			},
			Action: watchCommand,
		},
		{
			Name:   "mcp",
			Usage:  "Serve the index over MCP on stdio",
			Action: mcpCommand,
		},
	}
}

func indexCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "index <file.json>..."); err != nil {
		return err
	}
	var (
		reqs   []model.PageRequest
		failed int
	)
	for _, path := range c.Args().Slice() {
		req, err := ingest.ReadRequest(path)
		if err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
			continue
		}
		reqs = append(reqs, req)
	}
	if len(reqs) > 0 {
		if err := ix.AddPagesConcurrent(c.Context, reqs...); err != nil {
			return err
		}
		for _, req := range reqs {
			fmt.Fprintf(c.App.Writer, "indexed %s\n", req.PageDoc.URL)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, c.NArg())
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "search <term>..."); err != nil {
		return err
	}
	results, err := ix.SearchFiltered(c.Context,
		index.SearchParams{Query: c.Args().Slice(), Offset: c.Int("offset"), PageSize: c.Int("size")},
		filterParams(c),
		index.SearchOptions{FullDocs: true})
	if err != nil {
		return err
	}
	if c.Bool("full") {
		return writeJSON(c.App.Writer, results)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, r := range results {
		when := "-"
		if r.Score > 0 {
			when = time.UnixMilli(r.Score).UTC().Format(time.RFC3339)
		}
		url := "-"
		if r.Document != nil {
			url = r.Document.URL
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", when, r.ID, url)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(c.App.ErrWriter, "no matches")
	}
	return nil
}

func filterCommand(c *cli.Context) error {
	m, err := ix.FilterURLs(c.Context, filterParams(c))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, map[string]any{
		"filtered": m.IsDataFiltered(),
		"include":  m.Include(),
		"exclude":  m.Exclude(),
	})
}

func getCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "get <id>"); err != nil {
		return err
	}
	doc, err := ix.Get(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, doc)
}

func deleteCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "delete <id>..."); err != nil {
		return err
	}
	if err := ix.DelConcurrent(c.Context, c.Args().Slice()...); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %d pages\n", c.NArg())
	return nil
}

func tagCommand(apply func(ctx context.Context, id string, tags []string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := requireArgs(c, 2, "tag add|set|del <id> <tag>..."); err != nil {
			return err
		}
		return apply(c.Context, c.Args().First(), c.Args().Tail())
	}
}

func listCommand(add bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := requireArgs(c, 2, "list add|remove <id> <list>"); err != nil {
			return err
		}
		id, list := c.Args().Get(0), c.Args().Get(1)
		if add {
			return ix.AddToListConcurrent(c.Context, id, list)
		}
		return ix.RemoveFromListConcurrent(c.Context, id, list)
	}
}

func timestampCommand(add bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := requireArgs(c, 2, "timestamp add|del [--bookmark] <id> <ms>"); err != nil {
			return err
		}
		id := c.Args().Get(0)
		ms, err := strconv.ParseInt(c.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("bad timestamp %q: %w", c.Args().Get(1), err)
		}
		kind := keys.Visit
		if c.Bool("bookmark") {
			kind = keys.Bookmark
		}
		if !add {
			return ix.DelTimestampConcurrent(c.Context, id, kind, ms)
		}
		var meta map[string]any
		if raw := c.String("meta"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				return fmt.Errorf("--meta: %w", err)
			}
		}
		return ix.AddTimestampConcurrent(c.Context, id, kind, ms, meta)
	}
}

func suggestCommand(c *cli.Context) error {
	if err := requireArgs(c, 2, "suggest domains|tags <prefix>"); err != nil {
		return err
	}
	var (
		values []string
		err    error
	)
	switch c.Args().Get(0) {
	case "domains", "domain":
		values, err = ix.SuggestDomains(c.Context, c.Args().Get(1), c.Int("limit"))
	case "tags", "tag":
		values, err = ix.SuggestTags(c.Context, c.Args().Get(1), c.Int("limit"))
	default:
		return fmt.Errorf("unknown suggestion kind %q", c.Args().Get(0))
	}
	if err != nil {
		return err
	}
	for _, v := range values {
		fmt.Fprintln(c.App.Writer, v)
	}
	return nil
}

func recentCommand(c *cli.Context) error {
	pages, err := ix.RecentPages(c.Context, c.Int("limit"), c.Int64("before"))
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.ID)
	}
	urls, err := ix.PageURLs(c.Context, ids)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, p := range pages {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", time.UnixMilli(p.Time).UTC().Format(time.RFC3339), p.ID, urls[p.ID])
	}
	return tw.Flush()
}

func statsCommand(c *cli.Context) error {
	perKind, err := st.Stats()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "store\t%s\n", st.Path())
	for _, kind := range keys.All {
		fmt.Fprintf(tw, "%s\t%d\n", kind, perKind[kind])
	}
	return tw.Flush()
}

func verifyCommand(c *cli.Context) error {
	problems, err := ix.Verify(c.Context)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Fprintln(c.App.Writer, p.String())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d inconsistencies found", len(problems))
	}
	fmt.Fprintln(c.App.Writer, "index is consistent")
	return nil
}

func dumpCommand(c *cli.Context) error {
	dir := cfg.Dump.Dir
	if c.IsSet("dir") {
		dir = c.String("dir")
	}
	chunkSize := cfg.Dump.ChunkSize
	if c.IsSet("chunk-size") {
		chunkSize = c.Int("chunk-size")
	}
	manifest, err := backup.Dump(c.Context, st, dir, chunkSize, cfg.Dump.Workers)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "dumped %d records in %d chunks to %s\n", manifest.Records, len(manifest.Chunks), dir)
	return nil
}

func restoreCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "restore <dir>"); err != nil {
		return err
	}
	n, err := backup.Restore(c.Context, st, c.Args().First(), cfg.Dump.Workers)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "restored %d records\n", n)
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func watchCommand(c *cli.Context) error {
	dir := cfg.Watch.Dir
	if c.IsSet("dir") {
		dir = c.String("dir")
	}
	w, err := ingest.New(ix, ingest.Options{
		Include:  cfg.Watch.Include,
		Exclude:  cfg.Watch.Exclude,
		Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	if err := w.Start(dir); err != nil {
		_ = w.Stop()
		return err
	}
	fmt.Fprintf(c.App.Writer, "watching %s (ctrl-c to stop)\n", dir)

	ctx, cancel := signalContext(c.Context)
	defer cancel()
	<-ctx.Done()

	stopErr := w.Stop()
	stats := w.Stats()
	fmt.Fprintf(c.App.Writer, "indexed %d, removed %d, errors %d\n", stats.Indexed, stats.Removed, stats.Errors)
	return stopErr
}

func mcpCommand(c *cli.Context) error {
	ctx, cancel := signalContext(c.Context)
	defer cancel()
	err := mcp.NewServer(ix).Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
