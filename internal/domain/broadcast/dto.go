package broadcast

// SendRequest is the body of a broadcast.
type SendRequest struct {
	Message string `json:"message" validate:"required,max=1000"`
}

// SendResponse reports whether the message reached the connection.
type SendResponse struct {
	Audience  Audience `json:"audience"`
	Delivered bool     `json:"delivered"`
}
