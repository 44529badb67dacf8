package httputil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wikiroute/wikiroute/internal/httputil"
	"github.com/wikiroute/wikiroute/internal/metrics"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		requestID string
	}{
		{"with request id", "0b7c6f1e-8a4d-4d35-9a59-0f5d3c2b1a00"},
		{"without request id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) {
				if tt.requestID != "" {
					c.Set(httputil.RequestIDKey, tt.requestID)
				}
				httputil.RespondError(c, http.StatusTeapot, "test_code", "short and stout")
				c.String(http.StatusOK, "unreachable")
			})

			before := testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("test_code"))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != http.StatusTeapot {
				t.Errorf("status = %d, want 418", w.Code)
			}

			var got httputil.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode %q: %v", w.Body.String(), err)
			}

			want := httputil.ErrorResponse{Code: "test_code", Message: "short and stout", RequestID: tt.requestID}
			if got != want {
				t.Errorf("body = %+v, want %+v", got, want)
			}

			if after := testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("test_code")); after != before+1 {
				t.Errorf("errors_total went from %v to %v, want +1", before, after)
			}
		})
	}
}
