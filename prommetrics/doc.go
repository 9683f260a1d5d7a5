// Package prommetrics exports store metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := prommetrics.New(reg, "frames")
//	s, _ := shmimg.Open("frames", layout, codec, shmimg.WithMetricsCollector(mc))
//
// All metrics carry a "segment" label so several stores can share one
// registry.
package prommetrics
