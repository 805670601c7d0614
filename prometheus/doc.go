// Package prometheus exports kea operation metrics to Prometheus.
//
//	c := prometheus.NewCollector(prometheus.WithRegisterer(prom.DefaultRegisterer))
//	img, _ := kea.Open(ctx, bs, kea.WithMetricsCollector(c))
package prometheus
