package query

import (
	"log/slog"

	ignore "github.com/sabhiram/go-gitignore"

	"codequery/internal/index"
	"codequery/internal/logging"
)

// Transport carries result lines to the client. Write returns false on
// permanent failure for the current invocation.
type Transport interface {
	Write(line string) bool
}

// Executor is the enumeration logic of one query type. It calls back
// into the job's writers for every candidate result and returns a
// process-style exit code (0 on success).
type Executor interface {
	Execute(j *Job) int
}

// ExecFunc adapts a plain function to the Executor interface.
type ExecFunc func(j *Job) int

func (f ExecFunc) Execute(j *Job) int {
	return f(j)
}

// Job is one query's execution context: filters, flags, the symbol index
// under query, and cap/abort state. A job must be driven by a single
// goroutine; the transport is bound only for the duration of Run.
type Job struct {
	query   *Query
	flags   JobFlag
	index   *index.SymbolIndex
	files   *index.FileTable
	filters filterSet
	exclude *ignore.GitIgnore
	logger  *slog.Logger

	systemPath func(string) bool

	conn         Transport
	aborted      bool
	linesWritten int
}

// NewJob builds the execution context for q against the given index and
// file table. It validates the query and compiles its path filters; a
// malformed regex filter surfaces as a *PatternError.
func NewJob(q *Query, flags JobFlag, idx *index.SymbolIndex, files *index.FileTable, logger *slog.Logger) (*Job, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filters, err := newFilterSet(q.PathFilters, q.Flags&MatchRegex != 0)
	if err != nil {
		return nil, err
	}
	if q.Flags&SilentQuery != 0 {
		flags |= QuietJob
	}
	if q.Flags&WriteUnfiltered != 0 {
		flags |= WriteUnfilteredJob
	}
	if q.Flags&QuoteOutput != 0 {
		flags |= QuoteOutputJob
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Job{
		query:      q,
		flags:      flags,
		index:      idx,
		files:      files,
		filters:    filters,
		logger:     logger,
		systemPath: IsSystemPath,
	}, nil
}

// Query returns the query descriptor driving this job.
func (j *Job) Query() *Query {
	return j.query
}

// Index returns the symbol index under query.
func (j *Job) Index() *index.SymbolIndex {
	return j.index
}

// Files returns the file table resolving the index's file IDs.
func (j *Job) Files() *index.FileTable {
	return j.files
}

// SetExclude installs a gitignore matcher; candidates matching it are
// rejected by the filter predicate alongside the system-path check.
func (j *Job) SetExclude(gi *ignore.GitIgnore) {
	j.exclude = gi
}

// SetSystemPathFunc replaces the system-path classifier.
func (j *Job) SetSystemPathFunc(fn func(string) bool) {
	if fn != nil {
		j.systemPath = fn
	}
}

// Aborted reports whether a transport write failed during this
// invocation. Executors are expected to observe it and stop promptly.
func (j *Job) Aborted() bool {
	return j.aborted
}

// LinesWritten returns the number of lines counted against the result
// cap so far.
func (j *Job) LinesWritten() int {
	return j.linesWritten
}

// CapReached reports whether the result cap has been exhausted. Like an
// aborted job, a capped job should stop enumerating.
func (j *Job) CapReached() bool {
	return j.query.Max != -1 && j.linesWritten >= j.query.Max
}

// Done reports whether the executor should stop enumerating, either
// because the cap was hit or the transport failed.
func (j *Job) Done() bool {
	return j.aborted || j.CapReached()
}

// Write emits one result line. Lines rejected by the filter predicate
// are silently skipped and do not count against the cap; that is not an
// error, so Write still returns true. False means the cap was hit or the
// transport failed.
func (j *Job) Write(out string, flags WriteFlag) bool {
	if flags&Unfiltered == 0 && j.flags&WriteUnfilteredJob == 0 && !j.filter(out) {
		return true
	}
	if j.flags&QuoteOutputJob != 0 && flags&DontQuote == 0 {
		out = quote(out)
	}
	return j.writeRaw(out, flags)
}

// quote wraps s in double quotes, escaping embedded quotes with a
// backslash. Nothing else is escaped.
func quote(s string) string {
	buf := make([]byte, 0, 2*len(s)+2)
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			buf = append(buf, '\\')
		}
		buf = append(buf, s[i])
	}
	buf = append(buf, '"')
	return string(buf)
}

// writeRaw forwards a fully formatted line to the transport, enforcing
// the result cap. Calling it with no bound transport is a contract
// violation by the executor.
func (j *Job) writeRaw(out string, flags WriteFlag) bool {
	if j.conn == nil {
		panic("query: write with no bound transport")
	}
	if j.aborted {
		return false
	}
	if flags&IgnoreMax == 0 {
		if max := j.query.Max; max != -1 {
			if j.linesWritten == max {
				return false
			}
		}
		j.linesWritten++
	}

	if j.flags&QuietJob == 0 {
		j.logger.Debug("=>", "line", out)
	}

	if !j.conn.Write(out) {
		j.aborted = true
		return false
	}
	return true
}

// Run binds the transport, runs the executor, and unbinds the transport
// on every exit path. It returns the executor's exit code, or 1 when the
// transport failed mid-stream.
func (j *Job) Run(conn Transport, exec Executor) int {
	if conn == nil {
		panic("query: run with no transport")
	}
	j.conn = conn
	defer func() { j.conn = nil }()

	ret := exec.Execute(j)
	if ret == 0 && j.aborted {
		return 1
	}
	return ret
}
