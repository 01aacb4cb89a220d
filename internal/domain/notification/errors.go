package notification

import "errors"

var (
	ErrUnknownEvent         = errors.New("unknown event")
	ErrNotificationNotFound = errors.New("notification not found")
)
