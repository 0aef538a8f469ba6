package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMiddleware_HandlerFunc(t *testing.T) {
	testCases := []struct {
		name           string
		allowOrigins   []string
		method         string
		origin         string
		preflight      bool
		expectedStatus int
		expectedOrigin string
		expectNext     bool
	}{
		{
			name:           "allowed origin passes through",
			allowOrigins:   []string{"http://app.example"},
			method:         http.MethodGet,
			origin:         "http://app.example",
			expectedStatus: http.StatusOK,
			expectedOrigin: "http://app.example",
			expectNext:     true,
		},
		{
			name:           "unknown origin gets no cors header",
			allowOrigins:   []string{"http://app.example"},
			method:         http.MethodGet,
			origin:         "http://evil.example",
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "preflight for allowed origin",
			allowOrigins:   []string{"*"},
			method:         http.MethodOptions,
			origin:         "http://any.example",
			preflight:      true,
			expectedStatus: http.StatusNoContent,
			expectedOrigin: "http://any.example",
		},
		{
			name:           "preflight for unknown origin",
			allowOrigins:   []string{"http://app.example"},
			method:         http.MethodOptions,
			origin:         "http://evil.example",
			preflight:      true,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMiddleware(zap.NewNop(), tc.allowOrigins)

			called := false
			handler := m.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tc.method, "/api/healthz", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code)
			require.Equal(t, tc.expectedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			require.Equal(t, tc.expectNext, called)
		})
	}
}
