package index

import (
	"fmt"
	"sort"
)

// Location identifies a source position. Locations are ordered
// lexicographically by (FileID, Line, Column). The zero FileID marks the
// null location; line and column are 1-indexed.
type Location struct {
	FileID uint32
	Line   uint32
	Column uint32
}

// IsNull reports whether the location refers to no file.
func (l Location) IsNull() bool {
	return l.FileID == 0
}

// Compare returns -1, 0 or 1 ordering l against other by
// (FileID, Line, Column).
func (l Location) Compare(other Location) int {
	if l.FileID != other.FileID {
		if l.FileID < other.FileID {
			return -1
		}
		return 1
	}
	return ComparePosition(l.Line, l.Column, other.Line, other.Column)
}

// Key renders the location as "path:line:col:", resolving the file ID
// through ft. A nil table or unknown ID falls back to a numeric file tag.
func (l Location) Key(ft *FileTable) string {
	path := ""
	if ft != nil {
		path = ft.Path(l.FileID)
	}
	if path == "" {
		path = fmt.Sprintf("file#%d", l.FileID)
	}
	return fmt.Sprintf("%s:%d:%d:", path, l.Line, l.Column)
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d:%d", l.FileID, l.Line, l.Column)
}

// ComparePosition orders (line, col) against (refLine, refCol): line is
// compared first, then column, ties are equal. Returns -1, 0 or 1.
func ComparePosition(line, col, refLine, refCol uint32) int {
	if line != refLine {
		if line < refLine {
			return -1
		}
		return 1
	}
	if col != refCol {
		if col < refCol {
			return -1
		}
		return 1
	}
	return 0
}

// FileTable maps file paths to the numeric IDs carried by Locations.
// ID 0 is reserved for the null location.
type FileTable struct {
	paths map[uint32]string
	ids   map[string]uint32
	next  uint32
}

// NewFileTable returns an empty file table.
func NewFileTable() *FileTable {
	return &FileTable{
		paths: make(map[uint32]string),
		ids:   make(map[string]uint32),
		next:  1,
	}
}

// Intern returns the ID for path, assigning the next free ID if the path
// has not been seen before.
func (t *FileTable) Intern(path string) uint32 {
	if id, ok := t.ids[path]; ok {
		return id
	}
	id := t.next
	t.next++
	t.ids[path] = id
	t.paths[id] = path
	return id
}

// ID looks up the ID for a known path.
func (t *FileTable) ID(path string) (uint32, bool) {
	id, ok := t.ids[path]
	return id, ok
}

// Path returns the path for id, or "" if unknown.
func (t *FileTable) Path(id uint32) string {
	return t.paths[id]
}

// Len returns the number of interned paths.
func (t *FileTable) Len() int {
	return len(t.ids)
}

// Paths returns all interned paths in sorted order.
func (t *FileTable) Paths() []string {
	out := make([]string, 0, len(t.ids))
	for path := range t.ids {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
