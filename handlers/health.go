package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wayuu-ingest/health"
)

func healthStatusCode(overall health.Status) int {
	if overall == health.StatusCritical {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func HealthGet(c echo.Context) error {
	report := svc.Health()
	return c.JSON(healthStatusCode(report.Overall), report)
}

// HealthCheckPost re-runs every check synchronously, outside the
// scheduled cycle.
func HealthCheckPost(c echo.Context) error {
	report := svc.ForceHealthCheck()
	return c.JSON(healthStatusCode(report.Overall), report)
}
