// Package index holds the in-memory symbol index the query layer
// searches: an ordered map from source Location to Symbol, loaded from
// the sqlite database an external indexer maintains.
package index

import (
	"iter"
	"slices"
	"sort"
)

// Symbol describes one symbol occurrence. Start/End span the full extent
// of the occurrence; for definitions of container kinds the span covers
// the whole body.
type Symbol struct {
	Name        string
	DisplayName string
	Kind        Kind
	Definition  bool
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
}

type entry struct {
	loc Location
	sym *Symbol
}

// SymbolIndex is an ordered map from Location to Symbol, iterable in
// ascending location order with backward stepping from any point.
//
// The index is not safe for concurrent mutation; once loaded it is
// treated as immutable by the query layer.
type SymbolIndex struct {
	entries []entry
}

// NewSymbolIndex returns an empty index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{}
}

// Len returns the number of entries.
func (x *SymbolIndex) Len() int {
	return len(x.entries)
}

// Insert adds or replaces the symbol at loc, keeping the index ordered.
func (x *SymbolIndex) Insert(loc Location, sym *Symbol) {
	pos := x.lowerBound(loc)
	if pos < len(x.entries) && x.entries[pos].loc == loc {
		x.entries[pos].sym = sym
		return
	}
	x.entries = slices.Insert(x.entries, pos, entry{loc: loc, sym: sym})
}

// lowerBound returns the position of the first entry >= loc.
func (x *SymbolIndex) lowerBound(loc Location) int {
	return sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].loc.Compare(loc) >= 0
	})
}

// Find returns a cursor positioned at the exact entry for loc.
func (x *SymbolIndex) Find(loc Location) (Cursor, bool) {
	pos := x.lowerBound(loc)
	if pos < len(x.entries) && x.entries[pos].loc == loc {
		return Cursor{x: x, pos: pos}, true
	}
	return Cursor{}, false
}

// LowerBound returns a cursor at the first entry at or after loc. The
// bool is false when every entry orders before loc.
func (x *SymbolIndex) LowerBound(loc Location) (Cursor, bool) {
	pos := x.lowerBound(loc)
	if pos == len(x.entries) {
		return Cursor{}, false
	}
	return Cursor{x: x, pos: pos}, true
}

// All iterates the index in ascending location order.
func (x *SymbolIndex) All() iter.Seq2[Location, *Symbol] {
	return func(yield func(Location, *Symbol) bool) {
		for _, e := range x.entries {
			if !yield(e.loc, e.sym) {
				return
			}
		}
	}
}

// Cursor points at one entry of a SymbolIndex.
type Cursor struct {
	x   *SymbolIndex
	pos int
}

// Loc returns the location under the cursor.
func (c *Cursor) Loc() Location {
	return c.x.entries[c.pos].loc
}

// Symbol returns the symbol under the cursor.
func (c *Cursor) Symbol() *Symbol {
	return c.x.entries[c.pos].sym
}

// Prev steps the cursor to the previous entry in index order. It returns
// false, leaving the cursor in place, when already at the first entry.
func (c *Cursor) Prev() bool {
	if c.x == nil || c.pos == 0 {
		return false
	}
	c.pos--
	return true
}

// Next steps the cursor forward, returning false at the last entry.
func (c *Cursor) Next() bool {
	if c.x == nil || c.pos+1 >= len(c.x.entries) {
		return false
	}
	c.pos++
	return true
}
