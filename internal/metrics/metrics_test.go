package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

func TestObserver(t *testing.T) {
	m := New()

	var observer hlsbundle.Observer = m
	observer.RunFinished("success", 3*time.Second)
	observer.RunFinished("packaging_error", time.Second)
	observer.RunFinished("success", time.Second)
	observer.TrackFinished(hlsbundle.KindAudio, "done", true)
	observer.TrackFinished(hlsbundle.KindSubtitle, "convert", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.runsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("packaging_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.tracksTotal.WithLabelValues("audio", "done", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.tracksTotal.WithLabelValues("subtitle", "convert", "false")))

	m.RunStarted()
	m.RunStarted()
	m.RunDone()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsActive))
}

func TestRequestMiddleware(t *testing.T) {
	m := New()

	handler := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/", "/missing", "/"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.requestsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errorsTotal))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RunFinished("success", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `hlsbundle_runs_total{result="success"} 1`))
}
