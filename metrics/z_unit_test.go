package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCounters(t *testing.T) {
	p := NewPrometheus(nil)
	p.Move()
	p.Move()
	p.Rejected("size_violation")
	p.Win(3, "perfect")
	p.Submission("accepted")
	p.PersistenceError("set")
	p.ActiveSessions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.moves))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rejected.WithLabelValues("size_violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.wins.WithLabelValues("3", "perfect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.submissions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.persistErrs.WithLabelValues("set")))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.sessions))
}

func TestHandlerExposesMetrics(t *testing.T) {
	p := NewPrometheus(nil)
	p.Move()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "hanoi_moves_total 1"))
}

func TestOrNop(t *testing.T) {
	r := OrNop(nil)
	r.Move() // must not panic
	_, ok := r.(Nop)
	assert.True(t, ok)
}
