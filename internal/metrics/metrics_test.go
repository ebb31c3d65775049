package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountsByOutcome(t *testing.T) {
	m := New()

	m.Transfer(nil)
	m.Transfer(nil)
	m.Transfer(errors.New("boom"))
	m.Settlement(nil)
	m.Enrollment("event", errors.New("full"))
	m.TxRetry()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transfers.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfers.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlements.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrollments.WithLabelValues("event", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txRetries))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transfer(nil)
		m.Settlement(errors.New("x"))
		m.BillCreated("equal")
		m.Enrollment("club", nil)
		m.Notification("delivered")
		m.TxRetry()
		m.HTTPRequest("GET", "/", "200")
	})
}
