package notification

import (
	"time"

	"github.com/google/uuid"
)

// MaxItems caps the in-memory notification list.
const MaxItems = 5

// Category drives how the dashboard styles a notification.
type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
)

// Notification is one entry of the live notification list.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}
