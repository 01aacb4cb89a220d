package errorhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rideops/admin-console/internal/pkg/logger"
	"github.com/rideops/admin-console/internal/pkg/response"
)

// Generic texts used when the platform gives nothing better.
const (
	FallbackWarning = "The request could not be completed"
	FallbackError   = "Something went wrong, please try again"
)

// rejection is an upstream reply whose envelope status was not success.
type rejection interface {
	error
	Rejection() string
}

// payloadCarrier exposes the raw body of a failed upstream exchange.
type payloadCarrier interface {
	error
	Payload() []byte
}

// HandleUpstream maps a platform call failure to a dashboard notice.
//
// Envelope rejections become warnings carrying the server message.
// Anything else is an error whose message is pulled from the failure
// payload when it has one.
func HandleUpstream(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	l := logger.FromContext(ctx)

	if errors.Is(err, context.Canceled) {
		l.Debug().Err(err).Msg("Upstream call canceled by client")
		return
	}

	var rej rejection
	if errors.As(err, &rej) {
		msg := strings.TrimSpace(rej.Rejection())
		if msg == "" {
			msg = fallback
		}
		if msg == "" {
			msg = FallbackWarning
		}
		l.Warn().Err(err).Str("notice", msg).Msg("Upstream rejected request")
		response.Warning(w, msg)
		return
	}

	msg := ""
	var pc payloadCarrier
	if errors.As(err, &pc) {
		msg = MessageFrom(pc.Payload())
	}
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = FallbackError
	}

	l.Error().Err(err).Str("notice", msg).Msg("Upstream call failed")
	response.Failure(w, msg)
}

// MessageFrom extracts a human-readable message from an error payload.
func MessageFrom(payload []byte) string {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return ""
	}
	for _, path := range []string{"message", "error.message", "error"} {
		if v := gjson.GetBytes(payload, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// HandleError logs an internal failure and sends a 500.
func HandleError(ctx context.Context, w http.ResponseWriter, code, message string, err error) {
	logger.FromContext(ctx).Error().
		Err(err).
		Str("error_code", code).
		Str("error_message", message).
		Msg("Request error")

	response.Error(w, http.StatusInternalServerError, code, message)
}

// HandleValidation logs field errors and sends a 422.
func HandleValidation(ctx context.Context, w http.ResponseWriter, fieldErrors map[string]string) {
	errJSON, _ := json.Marshal(fieldErrors)
	logger.FromContext(ctx).Warn().
		RawJSON("validation_errors", errJSON).
		Msg("Validation error")

	response.ValidationError(w, fieldErrors)
}
