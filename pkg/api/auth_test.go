package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/posfloor/maitre/pkg/services"
)

func authContext(target string, headers map[string]string) *echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestExtractUser(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			name:     "no headers returns default",
			headers:  map[string]string{},
			expected: "api-client",
		},
		{
			name: "X-User-ID takes priority",
			headers: map[string]string{
				"X-User-ID":        "ana",
				"X-Forwarded-User": "proxy-ana",
			},
			expected: "ana",
		},
		{
			name: "X-Forwarded-User used when no X-User-ID",
			headers: map[string]string{
				"X-Forwarded-User": "bruno",
			},
			expected: "bruno",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := authContext("/", tt.headers)
			assert.Equal(t, tt.expected, extractUser(c))
		})
	}
}

func TestExtractTerminal(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		headers  map[string]string
		expected string
	}{
		{
			name:     "no identity returns unknown",
			target:   "/",
			headers:  map[string]string{},
			expected: "unknown",
		},
		{
			name:     "header takes priority over query",
			target:   "/?terminal_id=terminal-9",
			headers:  map[string]string{"X-Terminal-ID": "terminal-2"},
			expected: "terminal-2",
		},
		{
			name:     "query fallback",
			target:   "/?terminal_id=terminal-9",
			headers:  map[string]string{},
			expected: "terminal-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := authContext(tt.target, tt.headers)
			assert.Equal(t, tt.expected, extractTerminal(c))
		})
	}
}

func TestExtractStore(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		headers  map[string]string
		expected string
	}{
		{
			name:     "no scope returns default",
			target:   "/",
			headers:  map[string]string{},
			expected: "default",
		},
		{
			name:     "header takes priority over query",
			target:   "/?store_id=store-7",
			headers:  map[string]string{"X-Store-ID": "store-1"},
			expected: "store-1",
		},
		{
			name:     "query fallback",
			target:   "/?store_id=store-7",
			headers:  map[string]string{},
			expected: "store-7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := authContext(tt.target, tt.headers)
			assert.Equal(t, tt.expected, extractStore(c))
		})
	}
}

func TestExtractActor(t *testing.T) {
	c := authContext("/", map[string]string{
		"X-Store-ID":    "store-1",
		"X-User-ID":     "ana",
		"X-Terminal-ID": "terminal-1",
	})

	assert.Equal(t, services.Actor{
		StoreID:    "store-1",
		UserID:     "ana",
		TerminalID: "terminal-1",
	}, extractActor(c))
}
