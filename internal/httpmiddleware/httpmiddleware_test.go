package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"qrattend/internal/metrics"
)

func TestInstrumentLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Instrument(m), SecurityHeaders())
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	for _, path := range []string{"/things/1", "/things/2", "/nowhere"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		require.Empty(t, w.Header().Get("Strict-Transport-Security"))
	}

	require.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
	h := m.RequestDuration.WithLabelValues(http.MethodGet, "/things/:id", "418")
	require.NotNil(t, h)
}
