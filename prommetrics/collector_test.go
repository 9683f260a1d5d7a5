package prommetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := m.Collector("frames")

	c.RecordAttach(time.Millisecond, nil)
	c.RecordRead(time.Microsecond, nil)
	c.RecordRead(time.Microsecond, errors.New("bad"))
	c.RecordWrite(64, time.Microsecond, nil)
	c.RecordWrite(64, time.Microsecond, nil)
	c.RecordFinalize(nil)

	assert.Equal(t, 1.0, counterValue(t, reg, "shmimg_attach_total", map[string]string{"segment": "frames", "status": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "shmimg_read_total", map[string]string{"status": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "shmimg_read_total", map[string]string{"status": "error"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "shmimg_write_total", map[string]string{"status": "ok"}))
	assert.Equal(t, 128.0, counterValue(t, reg, "shmimg_write_bytes_total", map[string]string{"segment": "frames"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "shmimg_finalize_total", map[string]string{"status": "ok"}))
}

func TestCollector_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Collector("a").RecordFinalize(nil)
	m.Collector("b").RecordFinalize(nil)
	m.Collector("b").RecordFinalize(errors.New("x"))

	assert.Equal(t, 1.0, counterValue(t, reg, "shmimg_finalize_total", map[string]string{"segment": "a"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "shmimg_finalize_total", map[string]string{"segment": "b", "status": "error"}))

	// Registering twice on one registry is a programming error.
	assert.Panics(t, func() { NewMetrics(reg) })
}
