package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.FlowCompleted("login", true)
	m.FlowCompleted("login", false)
	m.FlowCompleted("login", false)
	m.RefreshReuse()
	m.MailFailure()
	m.MailFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.flows.WithLabelValues("login", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.flows.WithLabelValues("login", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reuse))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.mailFailures))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.FlowCompleted("register", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `gophauth_flow_total{flow="register",outcome="success"} 1`)
	assert.Contains(t, string(body), "gophauth_refresh_reuse_total 0")
}

func TestNop(t *testing.T) {
	var o Observer = Nop{}
	o.FlowCompleted("x", true)
	o.RefreshReuse()
	o.MailFailure()
}
