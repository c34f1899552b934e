// Package query executes parsed client queries against an in-memory
// symbol index and streams filtered, optionally annotated result lines
// over a transport.
package query

import (
	"fmt"
)

// Type selects which enumeration a query runs.
type Type string

const (
	// FindSymbols emits the locations of symbols matching a name
	// pattern, in index order.
	FindSymbols Type = "find-symbols"
	// ListSymbols emits the distinct names of symbols matching an
	// optional prefix.
	ListSymbols Type = "list-symbols"
	// DumpFile emits every symbol location in one file.
	DumpFile Type = "dump-file"
)

// Query is the parsed client request a job executes. Max of -1 means
// unbounded; MinLine/MaxLine of -1 mean unrestricted. A Query is
// immutable once execution starts.
type Query struct {
	Type        Type     `json:"type"`
	Pattern     string   `json:"pattern,omitempty"`
	Max         int      `json:"max"`
	MinLine     int      `json:"min_line"`
	MaxLine     int      `json:"max_line"`
	PathFilters []string `json:"path_filters,omitempty"`
	Flags       Flag     `json:"flags"`
}

// New returns a query of the given type with no result cap and no line
// restriction.
func New(t Type, pattern string) *Query {
	return &Query{
		Type:    t,
		Pattern: pattern,
		Max:     -1,
		MinLine: -1,
		MaxLine: -1,
	}
}

// Validate rejects malformed queries before execution begins. In
// particular a line-restricted query must carry both bounds; the writers
// rely on that invariant.
func (q *Query) Validate() error {
	switch q.Type {
	case FindSymbols, ListSymbols, DumpFile:
	default:
		return fmt.Errorf("unknown query type %q", q.Type)
	}
	if q.Max < -1 {
		return fmt.Errorf("invalid max %d", q.Max)
	}
	if (q.MinLine == -1) != (q.MaxLine == -1) {
		return fmt.Errorf("line restriction requires both min_line and max_line")
	}
	if q.MinLine != -1 {
		if q.MinLine < 1 || q.MaxLine < q.MinLine {
			return fmt.Errorf("invalid line range [%d, %d]", q.MinLine, q.MaxLine)
		}
	}
	return nil
}
