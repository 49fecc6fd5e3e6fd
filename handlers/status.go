package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func StatusGet(c echo.Context) error {
	return c.JSON(http.StatusOK, svc.Status())
}

func QueueStatsGet(c echo.Context) error {
	return c.JSON(http.StatusOK, svc.QueueStats())
}

func AsrConfigGet(c echo.Context) error {
	return c.JSON(http.StatusOK, svc.AsrConfiguration())
}

func ProcessTranscriptionsPost(c echo.Context) error {
	return c.JSON(http.StatusOK, svc.ProcessPendingTranscriptions(c.Request().Context()))
}

func ProcessTranslationsPost(c echo.Context) error {
	return c.JSON(http.StatusOK, svc.ProcessPendingTranslations(c.Request().Context()))
}

func ProcessAllPost(c echo.Context) error {
	return c.JSON(http.StatusOK, svc.ProcessAllPending(c.Request().Context()))
}
