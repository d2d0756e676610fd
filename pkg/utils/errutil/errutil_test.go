package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/complytrack/pkg/utils/errutil"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
)

func TestHandleHTTP(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		wantMsg string
	}{
		{
			name:    "client error keeps message",
			err:     goerr.New("tasks must be a list"),
			status:  http.StatusBadRequest,
			wantMsg: "tasks must be a list",
		},
		{
			name:    "server error hides message",
			err:     goerr.New("connection refused", goerr.V("host", "db")),
			status:  http.StatusInternalServerError,
			wantMsg: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			errutil.HandleHTTP(context.Background(), w, tt.err, tt.status)

			gt.Value(t, w.Code).Equal(tt.status)
			gt.Value(t, w.Header().Get("Content-Type")).Equal("application/json")

			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()
			gt.Bool(t, body.Success).False()
			gt.Value(t, body.Error).Equal(tt.wantMsg)
		})
	}
}

func TestHandleHTTP_NilError(t *testing.T) {
	w := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), w, nil, http.StatusInternalServerError)
	gt.Value(t, w.Body.Len()).Equal(0)
}

func TestHandle(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	err := goerr.New("snapshot failed", goerr.V("risk_id", 42))
	gt.Value(t, errutil.Handle(ctx, err, "background work failed")).Equal(err)
	gt.String(t, buf.String()).Contains("background work failed")
	gt.String(t, buf.String()).Contains("snapshot failed")

	buf.Reset()
	gt.NoError(t, errutil.Handle(ctx, nil, "nothing to log"))
	gt.Value(t, buf.Len()).Equal(0)
}
