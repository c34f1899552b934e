package query

import (
	"sort"
	"strings"

	"codequery/internal/index"
)

// ExecutorFor returns the executor implementing a query's type.
func ExecutorFor(q *Query) (Executor, bool) {
	switch q.Type {
	case FindSymbols:
		return findSymbolsExec{}, true
	case ListSymbols:
		return listSymbolsExec{}, true
	case DumpFile:
		return dumpFileExec{}, true
	default:
		return nil, false
	}
}

// matchName matches a symbol against a query pattern: exact match on the
// symbol name or display name, or prefix match when the pattern ends in
// '*'. Matching is case-sensitive.
func matchName(sym *index.Symbol, pattern string) bool {
	if prefix, wildcard := strings.CutSuffix(pattern, "*"); wildcard {
		return strings.HasPrefix(sym.Name, prefix) || strings.HasPrefix(sym.DisplayName, prefix)
	}
	return sym.Name == pattern || sym.DisplayName == pattern
}

// findSymbolsExec emits the locations of symbols matching the query
// pattern, in index order.
type findSymbolsExec struct{}

func (findSymbolsExec) Execute(j *Job) int {
	pattern := j.Query().Pattern
	if pattern == "" {
		return 1
	}
	for loc, sym := range j.Index().All() {
		if j.Done() {
			break
		}
		if !matchName(sym, pattern) {
			continue
		}
		j.WriteLocation(loc)
	}
	return 0
}

// listSymbolsExec emits the distinct symbol names matching an optional
// prefix, sorted for stable output.
type listSymbolsExec struct{}

func (listSymbolsExec) Execute(j *Job) int {
	prefix := j.Query().Pattern
	seen := make(map[string]struct{})
	for _, sym := range j.Index().All() {
		if prefix != "" && !strings.HasPrefix(sym.Name, prefix) {
			continue
		}
		seen[sym.Name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if j.Done() {
			break
		}
		j.Write(name, 0)
	}
	return 0
}

// dumpFileExec emits every symbol location in the file the query names.
type dumpFileExec struct{}

func (dumpFileExec) Execute(j *Job) int {
	fileID, ok := j.Files().ID(j.Query().Pattern)
	if !ok {
		return 1
	}

	cur, ok := j.Index().LowerBound(index.Location{FileID: fileID})
	if !ok {
		return 0
	}
	for {
		loc := cur.Loc()
		if loc.FileID != fileID {
			break
		}
		if j.Done() {
			break
		}
		j.WriteLocation(loc)
		if !cur.Next() {
			break
		}
	}
	return 0
}
