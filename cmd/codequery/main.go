// codequery is the CLI client for the symbol query daemon. It sends a
// query over the daemon's unix socket and prints the streamed result
// lines to stdout.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"codequery/internal/daemon"
	"codequery/internal/logging"
	"codequery/internal/query"
)

var logger *slog.Logger

func main() {
	logger = logging.Default("codequery")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "find":
		cmdQuery(query.FindSymbols, "find", os.Args[2:])
	case "list":
		cmdQuery(query.ListSymbols, "list", os.Args[2:])
	case "dump":
		cmdQuery(query.DumpFile, "dump", os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "stop":
		cmdStop(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		logger.Error("unknown command", "command", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("codequery - Symbol query client")
	fmt.Println()
	fmt.Println("Usage: codequery <command> [flags] [argument]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  find <name>    Find symbols by name (trailing * for prefix match)")
	fmt.Println("  list [prefix]  List distinct symbol names")
	fmt.Println("  dump <file>    Dump every symbol in a file")
	fmt.Println("  status         Show daemon status")
	fmt.Println("  stop           Stop the daemon")
	fmt.Println("  help           Show this help")
	fmt.Println()
	fmt.Println("Query flags (find/list/dump):")
	fmt.Println("  -m N              Cap the number of result lines (-1 = unbounded)")
	fmt.Println("  -f PATH           Path filter, repeatable (literal prefix)")
	fmt.Println("  -r                Treat path filters as regular expressions")
	fmt.Println("  -F                Annotate with the containing function")
	fmt.Println("  -k                Annotate with the symbol kind")
	fmt.Println("  -D                Annotate with the display name")
	fmt.Println("  -q                Quote output lines")
	fmt.Println("  -u                Write results unfiltered")
	fmt.Println("  --min-line N      Restrict results to lines >= N (needs --max-line)")
	fmt.Println("  --max-line N      Restrict results to lines <= N (needs --min-line)")
	fmt.Println("  --filter-system   Drop results under system include paths")
	fmt.Println("  --silent          Suppress the daemon's per-line log")
	fmt.Println("  --socket PATH     Daemon socket path")
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdQuery(qtype query.Type, name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	max := fs.Int("m", -1, "maximum result lines")
	var filters stringList
	fs.Var(&filters, "f", "path filter (repeatable)")
	regex := fs.Bool("r", false, "path filters are regexes")
	containing := fs.Bool("F", false, "annotate containing function")
	kind := fs.Bool("k", false, "annotate symbol kind")
	display := fs.Bool("D", false, "annotate display name")
	quoted := fs.Bool("q", false, "quote output")
	unfiltered := fs.Bool("u", false, "write unfiltered")
	minLine := fs.Int("min-line", -1, "minimum result line")
	maxLine := fs.Int("max-line", -1, "maximum result line")
	filterSystem := fs.Bool("filter-system", false, "drop system include paths")
	silent := fs.Bool("silent", false, "suppress daemon per-line log")
	socket := fs.String("socket", daemon.DefaultSocketPath(), "daemon socket path")
	fs.Parse(args)

	pattern := fs.Arg(0)
	if pattern == "" && qtype != query.ListSymbols {
		logger.Error("argument required", "command", name)
		os.Exit(1)
	}

	q := query.New(qtype, pattern)
	q.Max = *max
	q.MinLine = *minLine
	q.MaxLine = *maxLine
	q.PathFilters = filters
	if *regex {
		q.Flags |= query.MatchRegex
	}
	if *containing {
		q.Flags |= query.ContainingFunction
	}
	if *kind {
		q.Flags |= query.CursorKind
	}
	if *display {
		q.Flags |= query.DisplayName
	}
	if *quoted {
		q.Flags |= query.QuoteOutput
	}
	if *unfiltered {
		q.Flags |= query.WriteUnfiltered
	}
	if *filterSystem {
		q.Flags |= query.FilterSystemIncludes
	}
	if *silent {
		q.Flags |= query.SilentQuery
	}

	if err := q.Validate(); err != nil {
		logger.Error("invalid query", "error", err)
		os.Exit(1)
	}

	client := daemon.NewIPCClient(*socket)
	err := client.RunQuery(q, func(line string) error {
		_, err := fmt.Println(line)
		return err
	})
	if err != nil {
		logger.Error("query failed", "error", err)
		os.Exit(1)
	}
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	socket := fs.String("socket", daemon.DefaultSocketPath(), "daemon socket path")
	fs.Parse(args)

	client := daemon.NewIPCClient(*socket)
	status, err := client.Status()
	if err != nil {
		fmt.Println("daemon is not running")
		os.Exit(1)
	}
	fmt.Printf("running: pid %d, %d symbols in %d files, %d queries served\n",
		status.PID, status.Symbols, status.Files, status.Queries)
}

func cmdStop(args []string) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	socket := fs.String("socket", daemon.DefaultSocketPath(), "daemon socket path")
	fs.Parse(args)

	client := daemon.NewIPCClient(*socket)
	if err := client.Stop(); err != nil {
		logger.Error("failed to stop daemon", "error", err)
		os.Exit(1)
	}
	fmt.Println("daemon stopping")
}
