package query

import (
	"strings"
	"testing"

	"codequery/internal/index"
)

// fixtureIndex builds a two-file index with a container definition
// spanning lines 10-20 of src/a.c, a call site inside it, and symbols
// outside any container.
func fixtureIndex(t *testing.T) (*index.SymbolIndex, *index.FileTable) {
	t.Helper()
	idx := index.NewSymbolIndex()
	files := index.NewFileTable()

	a := files.Intern("src/a.c")
	b := files.Intern("src/b.c")

	idx.Insert(index.Location{FileID: a, Line: 10, Column: 1}, &index.Symbol{
		Name:        "ns::outer(int)",
		DisplayName: "outer",
		Kind:        index.KindFunction,
		Definition:  true,
		StartLine:   10, StartColumn: 1,
		EndLine: 20, EndColumn: 1,
	})
	idx.Insert(index.Location{FileID: a, Line: 15, Column: 5}, &index.Symbol{
		Name:        "ns::callee()",
		DisplayName: "callee",
		Kind:        index.KindCall,
		StartLine:   15, StartColumn: 5,
		EndLine: 15, EndColumn: 11,
	})
	idx.Insert(index.Location{FileID: a, Line: 25, Column: 1}, &index.Symbol{
		Name:        "freestanding",
		DisplayName: "freestanding",
		Kind:        index.KindVariable,
		StartLine:   25, StartColumn: 1,
		EndLine: 25, EndColumn: 13,
	})
	// A reference at the start of the second file; the containing scan
	// from here must stop at the file boundary instead of accepting the
	// container in src/a.c.
	idx.Insert(index.Location{FileID: b, Line: 5, Column: 3}, &index.Symbol{
		Name:        "ref",
		DisplayName: "ref",
		Kind:        index.KindReference,
		StartLine:   5, StartColumn: 3,
		EndLine: 5, EndColumn: 6,
	})

	return idx, files
}

func newLocationJob(t *testing.T, q *Query) (*Job, *index.FileTable) {
	t.Helper()
	idx, files := fixtureIndex(t)
	j, err := NewJob(q, 0, idx, files, nil)
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	return j, files
}

func TestWriteLocationNullRejected(t *testing.T) {
	j, _ := newLocationJob(t, New(FindSymbols, "x"))
	conn := newRecordingTransport()

	runWrites(t, j, conn, func(j *Job) {
		if j.WriteLocation(index.Location{}) {
			t.Errorf("WriteLocation() of a null location should return false")
		}
	})
	if len(conn.lines) != 0 {
		t.Errorf("null location must not be written")
	}
}

func TestWriteLocationBase(t *testing.T) {
	j, files := newLocationJob(t, New(FindSymbols, "x"))
	conn := newRecordingTransport()

	a, _ := files.ID("src/a.c")
	runWrites(t, j, conn, func(j *Job) {
		if !j.WriteLocation(index.Location{FileID: a, Line: 15, Column: 5}) {
			t.Errorf("WriteLocation() should succeed")
		}
	})

	if len(conn.lines) != 1 || conn.lines[0] != "src/a.c:15:5:" {
		t.Errorf("lines = %v, want [src/a.c:15:5:]", conn.lines)
	}
}

func TestWriteLocationAnnotations(t *testing.T) {
	q := New(FindSymbols, "x")
	q.Flags |= DisplayName | CursorKind | ContainingFunction
	j, files := newLocationJob(t, q)
	conn := newRecordingTransport()

	a, _ := files.ID("src/a.c")
	runWrites(t, j, conn, func(j *Job) {
		j.WriteLocation(index.Location{FileID: a, Line: 15, Column: 5})
	})

	if len(conn.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(conn.lines))
	}
	want := "src/a.c:15:5:\tcallee\tCall\tfunction: ns::outer(int)"
	if conn.lines[0] != want {
		t.Errorf("line = %q, want %q", conn.lines[0], want)
	}
}

func TestWriteLocationNoContainingFunction(t *testing.T) {
	q := New(FindSymbols, "x")
	q.Flags |= ContainingFunction
	j, files := newLocationJob(t, q)
	conn := newRecordingTransport()

	a, _ := files.ID("src/a.c")
	runWrites(t, j, conn, func(j *Job) {
		// Line 25 is outside the container's 10-20 span.
		j.WriteLocation(index.Location{FileID: a, Line: 25, Column: 1})
	})

	if len(conn.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(conn.lines))
	}
	if strings.Contains(conn.lines[0], "function:") {
		t.Errorf("no containing-function annotation expected, got %q", conn.lines[0])
	}
}

func TestWriteLocationContainingFunctionBoundaries(t *testing.T) {
	// The span comparison is inclusive on both ends, column-aware.
	q := New(FindSymbols, "x")
	q.Flags |= ContainingFunction
	idx, files := fixtureIndex(t)
	a, _ := files.ID("src/a.c")

	tests := []struct {
		name     string
		loc      index.Location
		expected bool
	}{
		{"start of span", index.Location{FileID: a, Line: 10, Column: 1}, false}, // the entry itself, scan starts before it
		{"inside span", index.Location{FileID: a, Line: 15, Column: 5}, true},
		{"end of span inclusive", index.Location{FileID: a, Line: 20, Column: 1}, true},
		{"column past end", index.Location{FileID: a, Line: 20, Column: 2}, false},
		{"before span", index.Location{FileID: a, Line: 9, Column: 9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, ok := idx.Find(tt.loc)
			if !ok {
				// Synthesize a cursor at the nearest entry after loc the
				// way the writer would only for present locations; for
				// boundary probing use the call-site entry.
				cur, ok = idx.LowerBound(tt.loc)
				if !ok {
					t.Fatalf("no entry at or after %v", tt.loc)
				}
			}
			_, found := containingFunctionOf(cur, tt.loc)
			if found != tt.expected {
				t.Errorf("containingFunctionOf(%v) = %v, want %v", tt.loc, found, tt.expected)
			}
		})
	}
}

func TestWriteLocationStopsAtFileBoundary(t *testing.T) {
	q := New(FindSymbols, "x")
	q.Flags |= ContainingFunction
	j, files := newLocationJob(t, q)
	conn := newRecordingTransport()

	b, _ := files.ID("src/b.c")
	runWrites(t, j, conn, func(j *Job) {
		j.WriteLocation(index.Location{FileID: b, Line: 5, Column: 3})
	})

	if len(conn.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(conn.lines))
	}
	if strings.Contains(conn.lines[0], "function:") {
		t.Errorf("scan crossed a file boundary: %q", conn.lines[0])
	}
}

func TestWriteLocationLineRestriction(t *testing.T) {
	q := New(FindSymbols, "x")
	q.MinLine = 5
	q.MaxLine = 10
	j, files := newLocationJob(t, q)
	conn := newRecordingTransport()

	a, _ := files.ID("src/a.c")
	tests := []struct {
		line     uint32
		expected bool
	}{
		{4, false},
		{5, true},
		{10, true},
		{11, false},
	}
	runWrites(t, j, conn, func(j *Job) {
		for _, tt := range tests {
			got := j.WriteLocation(index.Location{FileID: a, Line: tt.line, Column: 1})
			if got != tt.expected {
				t.Errorf("WriteLocation(line %d) = %v, want %v", tt.line, got, tt.expected)
			}
		}
	})

	if len(conn.lines) != 2 {
		t.Errorf("transport received %d lines, want 2", len(conn.lines))
	}
}

func TestWriteLocationMissingFromIndex(t *testing.T) {
	// Annotations requested for a location the index does not know:
	// the base line is still emitted.
	q := New(FindSymbols, "x")
	q.Flags |= DisplayName
	j, files := newLocationJob(t, q)
	conn := newRecordingTransport()

	a, _ := files.ID("src/a.c")
	runWrites(t, j, conn, func(j *Job) {
		if !j.WriteLocation(index.Location{FileID: a, Line: 99, Column: 9}) {
			t.Errorf("WriteLocation() should still emit the base line")
		}
	})

	if len(conn.lines) != 1 || conn.lines[0] != "src/a.c:99:9:" {
		t.Errorf("lines = %v, want the bare key", conn.lines)
	}
}
