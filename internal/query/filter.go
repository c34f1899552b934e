package query

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternError reports a malformed regex path filter. It is returned at
// job construction so the query can be rejected before execution begins.
type PatternError struct {
	Source string
	Err    error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid path filter %q: %v", e.Source, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// filterSet matches candidate paths. The two implementations are
// mutually exclusive by construction; a nil filterSet means no path
// filtering.
type filterSet interface {
	match(candidate string) bool
}

// literalFilters match by exact byte-prefix, case-sensitive.
type literalFilters []string

func (f literalFilters) match(candidate string) bool {
	for _, prefix := range f {
		if strings.HasPrefix(candidate, prefix) {
			return true
		}
	}
	return false
}

// regexFilters match anywhere in the candidate, unanchored.
type regexFilters []*regexp.Regexp

func (f regexFilters) match(candidate string) bool {
	for _, re := range f {
		if re.MatchString(candidate) {
			return true
		}
	}
	return false
}

// newFilterSet builds the filter set for a query's path filters.
// Literal mode never fails; regex mode returns a *PatternError for the
// first malformed pattern.
func newFilterSet(patterns []string, asRegex bool) (filterSet, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	if !asRegex {
		return literalFilters(patterns), nil
	}
	res := make(regexFilters, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &PatternError{Source: p, Err: err}
		}
		res = append(res, re)
	}
	return res, nil
}

// IsSystemPath reports whether path belongs to system headers or
// libraries rather than project code.
func IsSystemPath(path string) bool {
	if strings.HasPrefix(path, "/usr/") {
		// FreeBSD puts home directories under /usr.
		return !strings.HasPrefix(path, "/usr/home/")
	}
	return strings.HasPrefix(path, "/System/")
}

// pathOf returns the path component of a candidate line: everything up
// to the ":line:col:" suffix of a location key. Candidates without a
// colon come back unchanged.
func pathOf(candidate string) string {
	path, _, _ := strings.Cut(candidate, ":")
	return path
}

// leadingSpace covers the same byte set as C's isspace.
const leadingSpace = " \t\n\v\f\r"

// filter decides whether a candidate output line is emitted. It is pure;
// the trimmed view is used only for matching, never for output.
func (j *Job) filter(value string) bool {
	systemCheck := j.query.Flags&FilterSystemIncludes != 0
	if j.filters == nil && j.exclude == nil && !systemCheck {
		return true
	}

	trimmed := strings.TrimLeft(value, leadingSpace)

	if systemCheck && j.systemPath(trimmed) {
		return false
	}
	if j.exclude != nil && j.exclude.MatchesPath(pathOf(trimmed)) {
		return false
	}
	if j.filters == nil {
		return true
	}
	return j.filters.match(trimmed)
}
