package errors

// Wire error codes. The numbering is fixed for protocol compatibility and
// must not be renumbered; gaps are codes owned by layers outside this node.
const (
	CodeSubmit        uint16 = 1001
	CodeFetch         uint16 = 1002
	CodeIrregularData uint16 = 1003
	CodePut           uint16 = 1004
	CodeNotTSType     uint16 = 1006
	CodeMissingType   uint16 = 1007
	CodeMissingHelper uint16 = 1008
	CodeDelete        uint16 = 1009
	CodeGet           uint16 = 1010
	CodeBadKeyLength  uint16 = 1011
	CodeListKeys      uint16 = 1012
	CodeTimeout       uint16 = 1013
	CodeCreate        uint16 = 1014
	CodeActivate      uint16 = 1017
	CodeBadQuery      uint16 = 1018
	CodeTableInactive uint16 = 1019
	CodeParseError    uint16 = 1020
	CodeNotFound      uint16 = 1021
)

// WireCode maps an error onto its wire error code. Query errors surface as
// bad query unless their kind has its own code (table inactive, missing
// helper, timeouts); sentinel errors not listed here, including the
// planner's ErrNoPrimaries, surface as fetch. Infrastructure failures keep
// their own codes so clients can distinguish retryable conditions.
func WireCode(err error) uint16 {
	switch err {
	case ErrTableNotFound, ErrRecordNotFound:
		return CodeNotFound
	case ErrTableInactive:
		return CodeTableInactive
	case ErrMissingHelper:
		return CodeMissingHelper
	case ErrQueueFull, ErrQueueStopped:
		return CodeSubmit
	case ErrSubQueryTimeout, ErrBackendTimeout:
		return CodeTimeout
	case ErrBadRecord:
		return CodeIrregularData
	case ErrBadKeyLength:
		return CodeBadKeyLength
	}

	switch KindOf(err) {
	case "":
		return CodeFetch
	case KindTableInactive:
		return CodeTableInactive
	case KindMissingHelperModule:
		return CodeMissingHelper
	case KindSubQueryTimeout, KindBackendTimeout:
		return CodeTimeout
	default:
		return CodeBadQuery
	}
}
