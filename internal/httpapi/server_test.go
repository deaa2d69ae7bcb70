package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 20, 1, 200); err != nil || got != 20 {
		t.Fatalf("empty input: got %d, %v", got, err)
	}
	if got, err := parsePositiveInt("50", 20, 1, 200); err != nil || got != 50 {
		t.Fatalf("valid input: got %d, %v", got, err)
	}
	for _, bad := range []string{"0", "201", "-5", "abc"} {
		if _, err := parsePositiveInt(bad, 20, 1, 200); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestHandleHealthWithoutDatabase(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil, zerolog.Nop(), Options{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	if err := s.handleHealth(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handleHealth: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["database"] != "disabled" {
		t.Fatalf("database state = %v, want disabled", resp.Data)
	}
}

func TestHandleSaveLabelValidation(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil, zerolog.Nop(), Options{})
	e := echo.New()

	for _, body := range []string{
		`{"url":"","label":"keep"}`,
		`{"url":"https://x.example/1","label":""}`,
		`not-json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/labels", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		if err := s.handleSaveLabel(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestServerDefaults(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil, zerolog.Nop(), Options{})
	if s.opts.Port != 8090 {
		t.Fatalf("default port = %d, want 8090", s.opts.Port)
	}
	if s.opts.Host != "0.0.0.0" {
		t.Fatalf("default host = %q", s.opts.Host)
	}
}
