package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayuu-ingest/asr"
	"wayuu-ingest/ffmpeg"
	"wayuu-ingest/health"
	"wayuu-ingest/pipeline"
	"wayuu-ingest/queue"
	"wayuu-ingest/ratelimit"
	"wayuu-ingest/records"
	"wayuu-ingest/translation"
	"wayuu-ingest/validate"
	"wayuu-ingest/ytdlp"
)

type fakeDownloader struct{}

func (fakeDownloader) FetchMetadata(url string) (ytdlp.Metadata, error) {
	return ytdlp.Metadata{ID: "vid1", Title: "Relato"}, nil
}

func (fakeDownloader) DownloadAudio(url, dst string) error {
	return os.WriteFile(dst, bytes.Repeat([]byte{0xAB}, 4096), 0644)
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return "anaa pia", nil
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(ctx context.Context, text string, direction translation.Direction) (translation.Result, error) {
	return translation.Result{TranslatedText: "es: " + text, Confidence: 0.9}, nil
}

func TestMain(m *testing.M) {
	logger := logrus.New()
	records.Init(logger)
	queue.Init(logger)
	validate.Init(logger)
	asr.Init(logger)
	health.Init(logger)
	pipeline.Init(logger)

	dir, err := os.MkdirTemp("", "handlers")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	store, err := records.Open(filepath.Join(dir, "db.json"))
	if err != nil {
		panic(err)
	}

	audioDir := filepath.Join(dir, "audio")
	service, err := pipeline.New(pipeline.Config{
		Store:   store,
		Limiter: ratelimit.New(0, 0),
		Validator: validate.NewForTests(func(string) (ffmpeg.ProbeInfo, error) {
			return ffmpeg.ProbeInfo{FormatName: "mp3", Duration: 30, HasAudio: true}, nil
		}, func() bool { return true }),
		Transcriber: fakeTranscriber{},
		Translator:  fakeTranslator{},
		Downloader:  fakeDownloader{},
		Monitor:     health.NewMonitor(audioDir, filepath.Join(dir, "db.json"), time.Hour),
		AudioDir:    audioDir,
		AsrProvider: "stub",
		Queue:       queue.Options{PollInterval: 2 * time.Millisecond},
	})
	if err != nil {
		panic(err)
	}

	Init(logger, service)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec, parsed
}

func TestIngestPost(t *testing.T) {
	rec, body := doJSON(t, IngestPost, http.MethodPost, "/ingest",
		`{"url":"https://youtube.com/watch?v=vid1"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "vid1", data["videoId"])
	assert.Equal(t, "downloading", data["status"])
}

func TestIngestPostRequiresURL(t *testing.T) {
	rec, body := doJSON(t, IngestPost, http.MethodPost, "/ingest", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
}

func multipartUpload(t *testing.T, filename string, payload []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("title", "Relato subido"))
	require.NoError(t, writer.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	require.NoError(t, UploadPost(e.NewContext(req, rec)))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec, parsed
}

func TestUploadPost(t *testing.T) {
	rec, body := multipartUpload(t, "relato.mp3", bytes.Repeat([]byte{0xCD}, 4096))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Contains(t, data["videoId"], "upload_")
	assert.Equal(t, "pending_transcription", data["status"])
}

func TestUploadPostRejectsInvalidMedia(t *testing.T) {
	rec, body := multipartUpload(t, "tiny.mp3", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestRecordDeleteNotFound(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/records/:id")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	require.NoError(t, RecordDelete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordResetConflict(t *testing.T) {
	// make sure vid1 exists; it is not completed, so a reset conflicts
	doJSON(t, IngestPost, http.MethodPost, "/ingest", `{"url":"https://youtube.com/watch?v=vid1"}`)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/records/:id/reset")
	c.SetParamNames("id")
	c.SetParamValues("vid1")

	require.NoError(t, RecordResetPost(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProcessTranslationsPost(t *testing.T) {
	rec, body := doJSON(t, ProcessTranslationsPost, http.MethodPost, "/process/translations", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No records pending translation.", body["message"])
}

func TestStatusGet(t *testing.T) {
	rec, body := doJSON(t, StatusGet, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "total")
	assert.Contains(t, body, "videos")
}

func TestQueueStatsGet(t *testing.T) {
	rec, body := doJSON(t, QueueStatsGet, http.MethodGet, "/queue/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "pending")
	assert.Contains(t, body, "failed")
}

func TestAsrConfigGet(t *testing.T) {
	rec, body := doJSON(t, AsrConfigGet, http.MethodGet, "/asr/config", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stub", body["provider"])
}

func TestHealthGet(t *testing.T) {
	rec, body := doJSON(t, HealthGet, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "overall")
}

func TestHealthStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, healthStatusCode(health.StatusHealthy))
	assert.Equal(t, http.StatusOK, healthStatusCode(health.StatusWarning))
	assert.Equal(t, http.StatusServiceUnavailable, healthStatusCode(health.StatusCritical))
}
