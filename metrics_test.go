package bloodliner

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())
	e := engineWithHabit(t, nil)
	e.Subscribe(m.Observe)

	perfect(t, e, 1)
	logN(t, e, 1, Shot, 1)
	_, err := e.Finalize(ctx, 1, FinalizeOptions{})
	require.NoError(t, err)
	_, err = e.SetWakeTime(ctx, 2, 9999)
	a.Error(err)

	a.Equal(1.0, testutil.ToFloat64(m.changes.WithLabelValues(string(ChangeHabit))))
	a.Equal(1.0, testutil.ToFloat64(m.changes.WithLabelValues(string(ChangeEvent))))
	a.Equal(1.0, testutil.ToFloat64(m.changes.WithLabelValues(string(ChangeFinalize))))
	a.Equal(0.0, testutil.ToFloat64(m.changes.WithLabelValues(string(ChangeWake))))
	a.Equal(1.0, testutil.ToFloat64(m.finalized))
	a.Equal(1.0, testutil.ToFloat64(m.prs))
	a.Equal(1.0, testutil.ToFloat64(m.streak))
	a.Equal(80.0, testutil.ToFloat64(m.total.WithLabelValues(string(Done))))
	// -0.8*0.05 + 0.06
	a.InDelta(1.02, testutil.ToFloat64(m.ghost), 1e-9)
}
