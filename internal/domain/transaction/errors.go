package transaction

import "errors"

var (
	ErrStaleResponse  = errors.New("stale response discarded")
	ErrInvalidSortKey = errors.New("invalid sort key")
	ErrInvalidOrderBy = errors.New("invalid order by")
)
