package query

// Flag is a per-query option set by the client.
type Flag uint32

const (
	// SilentQuery suppresses the per-line operator log for this query.
	SilentQuery Flag = 1 << iota
	// MatchRegex compiles path filters as regular expressions instead of
	// literal prefixes.
	MatchRegex
	// FilterSystemIncludes drops results under system include paths.
	FilterSystemIncludes
	// ContainingFunction annotates each location with its enclosing
	// function.
	ContainingFunction
	// CursorKind annotates each location with the symbol kind spelling.
	CursorKind
	// DisplayName annotates each location with the symbol display name.
	DisplayName
	// WriteUnfiltered bypasses result filtering for the whole query.
	WriteUnfiltered
	// QuoteOutput wraps every emitted line in escaped double quotes.
	QuoteOutput
)

// WriteFlag modifies a single write call.
type WriteFlag uint32

const (
	// Unfiltered bypasses the filter predicate for this write.
	Unfiltered WriteFlag = 1 << iota
	// IgnoreMax exempts this write from the result cap.
	IgnoreMax
	// DontQuote suppresses output quoting for this write even when the
	// job quotes output.
	DontQuote
)

// JobFlag is internal per-job state derived from query flags or set by
// the job owner.
type JobFlag uint32

const (
	// QuietJob suppresses the per-line operator log.
	QuietJob JobFlag = 1 << iota
	// WriteUnfilteredJob bypasses filtering for every write.
	WriteUnfilteredJob
	// QuoteOutputJob quotes every line not marked DontQuote.
	QuoteOutputJob
)
