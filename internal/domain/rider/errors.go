package rider

import "errors"

var ErrSearchClosed = errors.New("rider search closed")
