package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"wayuu-ingest/pipeline"
	"wayuu-ingest/records"
)

type ingestRequest struct {
	URL string `json:"url"`
}

func IngestPost(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "a url field is required",
		})
	}

	log.Infoln("received ingestion request for", req.URL)
	recordID, err := svc.Ingest(c.Request().Context(), req.URL)
	if err != nil {
		log.Errorf("failed to start ingestion: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "failed to start video processing",
			"error":   err.Error(),
		})
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"success": true,
		"message": "video processing started",
		"data": map[string]any{
			"videoId": recordID,
			"status":  string(records.StatusDownloading),
		},
	})
}

func UploadPost(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "a file field is required",
		})
	}
	title := c.FormValue("title")

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "could not read uploaded file",
		})
	}
	defer src.Close()

	// spool to a temp file so the validator can probe it
	tmp, err := os.CreateTemp("", "wayuu-upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "could not store uploaded file",
		})
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "could not store uploaded file",
		})
	}
	tmp.Close()

	if title == "" {
		title = file.Filename
	}
	recordID, err := svc.UploadFile(tmpPath, pipeline.UploadMetadata{Title: title})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "upload rejected",
			"error":   err.Error(),
		})
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"success": true,
		"data": map[string]any{
			"videoId": recordID,
			"status":  string(records.StatusPendingTranscription),
		},
	})
}

func RecordDelete(c echo.Context) error {
	err := svc.DeleteRecord(c.Param("id"))
	if errors.Is(err, records.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"message": "record not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func RecordResetPost(c echo.Context) error {
	rec, err := svc.ResetForRetranslation(c.Param("id"))
	if errors.Is(err, records.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"message": "record not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"videoId": rec.ID, "status": string(rec.Status)},
	})
}
