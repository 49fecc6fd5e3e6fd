package asr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloudForTests(srv *httptest.Server) *CloudWhisper {
	c := NewCloudWhisper("sk-test", "es", "prompt")
	c.baseURL = srv.URL
	c.baseDelay = time.Millisecond
	return c
}

func TestCloudWhisperSuccess(t *testing.T) {
	var gotAuth, gotModel, gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		w.Write([]byte("anaa pia wayuu\n"))
	}))
	defer srv.Close()

	text, err := cloudForTests(srv).Transcribe(context.Background(), audioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "anaa pia wayuu", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "es", gotLanguage)
}

func TestCloudWhisperRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("anaa"))
	}))
	defer srv.Close()

	text, err := cloudForTests(srv).Transcribe(context.Background(), audioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "anaa", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCloudWhisperGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := cloudForTests(srv).Transcribe(context.Background(), audioFixture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestCloudWhisperClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := cloudForTests(srv).Transcribe(context.Background(), audioFixture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCloudWhisperMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a missing file")
	}))
	defer srv.Close()

	_, err := cloudForTests(srv).Transcribe(context.Background(), "/nonexistent/audio.mp3")
	var transErr *TranscriptionError
	require.ErrorAs(t, err, &transErr)
}
