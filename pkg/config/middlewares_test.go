package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "http error keeps its message",
			err:        echo.NewHTTPError(http.StatusNotFound, "Letter not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"message":"Letter not found"}`,
		},
		{
			name:       "plain error in development exposes detail",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"boom","message":"Internal server error"}`,
		},
		{
			name:       "plain error in production hides detail",
			production: true,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"Internal server error"}`,
		},
		{
			name:       "internal cause is reported",
			err:        echo.NewHTTPError(http.StatusInternalServerError, "Failed").SetInternal(errors.New("db down")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"db down","message":"Internal server error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewHTTPErrorHandler(tt.production)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
