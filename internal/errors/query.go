package errors

import "fmt"

// Kind identifies a query compilation or planning failure. The set is closed;
// every kind maps onto exactly one wire error code (see codes.go).
type Kind string

const (
	KindAlreadyCompiled      Kind = "already_compiled"
	KindFullTableScan        Kind = "full_table_scan_unsupported"
	KindNoLowerBound         Kind = "no_lower_bound"
	KindNoUpperBound         Kind = "no_upper_bound"
	KindDuplicateLowerBound  Kind = "duplicate_lower_bound"
	KindDuplicateUpperBound  Kind = "duplicate_upper_bound"
	KindLowerBoundGtUpper    Kind = "lower_bound_gt_upper"
	KindDegenerateRange      Kind = "degenerate_range"
	KindTimeBoundsMustUseAnd Kind = "time_bounds_must_use_and"
	KindMissingKeyField      Kind = "missing_key_field"
	KindKeyFieldMustUseEq    Kind = "key_field_must_use_equals"
	KindTooManySubQueries    Kind = "too_many_subqueries"
	KindNoPrimariesAvailable Kind = "no_primaries_available"
	KindSubQueryTimeout      Kind = "sub_query_timeout"
	KindBackendTimeout       Kind = "backend_timeout"
	KindInvalidQuery         Kind = "invalid_query"
	KindTableInactive        Kind = "table_inactive"
	KindMissingHelperModule  Kind = "missing_helper_module"
)

// QueryError is a structured (kind, detail) error surfaced to clients.
type QueryError struct {
	Kind   Kind
	Detail string
}

func (e *QueryError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewQueryError creates a QueryError with a formatted detail string.
func NewQueryError(kind Kind, format string, args ...interface{}) *QueryError {
	return &QueryError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// QueryErr creates a QueryError with no detail.
func QueryErr(kind Kind) *QueryError {
	return &QueryError{Kind: kind}
}

// KindOf returns the query error kind of err, or "" if err is not a QueryError.
func KindOf(err error) Kind {
	if qe, ok := err.(*QueryError); ok {
		return qe.Kind
	}
	return ""
}
