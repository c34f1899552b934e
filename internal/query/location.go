package query

import (
	"strings"

	"codequery/internal/index"
)

// WriteLocation emits the textual key of a location, appending the
// annotations the query asked for. Null locations and locations outside
// the query's line restriction are rejected. A location missing from the
// symbol index still emits its base line, just without annotations.
func (j *Job) WriteLocation(loc index.Location) bool {
	if loc.IsNull() {
		return false
	}
	if j.query.MinLine != -1 {
		// Validate guarantees MaxLine is set whenever MinLine is.
		if j.query.MaxLine == -1 {
			panic("query: line-restricted query missing max_line")
		}
		line := int(loc.Line)
		if line < j.query.MinLine || line > j.query.MaxLine {
			return false
		}
	}

	out := loc.Key(j.files)

	containingFunction := j.query.Flags&ContainingFunction != 0
	cursorKind := j.query.Flags&CursorKind != 0
	displayName := j.query.Flags&DisplayName != 0
	if containingFunction || cursorKind || displayName {
		cur, ok := j.index.Find(loc)
		if !ok {
			j.logger.Warn("location missing from symbol index", "location", out)
		} else {
			sym := cur.Symbol()
			var sb strings.Builder
			sb.WriteString(out)
			if displayName {
				sb.WriteByte('\t')
				sb.WriteString(sym.DisplayName)
			}
			if cursorKind {
				sb.WriteByte('\t')
				sb.WriteString(sym.Kind.Spelling())
			}
			if containingFunction {
				if name, found := containingFunctionOf(cur, loc); found {
					sb.WriteString("\tfunction: ")
					sb.WriteString(name)
				}
			}
			out = sb.String()
		}
	}

	return j.Write(out, 0)
}

// containingFunctionOf walks backward from the entry at cur looking for
// the nearest preceding container definition whose span includes loc.
// The scan stops at the start of the index or when it crosses into a
// different file.
func containingFunctionOf(cur index.Cursor, loc index.Location) (string, bool) {
	for cur.Prev() {
		candidate := cur.Loc()
		if candidate.FileID != loc.FileID {
			break
		}
		sym := cur.Symbol()
		if sym.Definition && sym.Kind.Container() &&
			index.ComparePosition(loc.Line, loc.Column, sym.StartLine, sym.StartColumn) >= 0 &&
			index.ComparePosition(loc.Line, loc.Column, sym.EndLine, sym.EndColumn) <= 0 {
			return sym.Name, true
		}
	}
	return "", false
}
