package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
)

// errorResponse is the JSON body written for every failed API request
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handle logs the error with a message and returns it unchanged.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	return err
}

// HandleHTTP logs the error and writes a JSON error response with statusCode.
// Messages of 5xx errors are not exposed to the client.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs := []any{
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
		}
		if statusCode >= http.StatusInternalServerError {
			attrs = append(attrs, "stack", ge.Stacks())
			logger.Error("HTTP error", attrs...)
		} else {
			logger.Warn("HTTP error", attrs...)
		}
	} else if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP error", "status", statusCode, "error", err.Error())
	} else {
		logger.Warn("HTTP error", "status", statusCode, "error", err.Error())
	}

	msg := err.Error()
	if statusCode >= http.StatusInternalServerError {
		msg = http.StatusText(statusCode)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Error: msg})
}
