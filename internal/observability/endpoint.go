package observability

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterEndpoint mounts the Prometheus scrape handler on the given echo
// instance at /metrics.
func (m *Metrics) RegisterEndpoint(e *echo.Echo) {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	e.GET("/metrics", echo.WrapHandler(handler))
}
