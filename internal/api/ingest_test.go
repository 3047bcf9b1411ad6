package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdstream/internal/conf"
	"github.com/tphakala/birdstream/internal/detection"
	"github.com/tphakala/birdstream/internal/spectrogram"
)

func newIngestFixture(queueSize int) (*Controller, chan detection.PredictionBatch, *spectrogram.Buffer) {
	controller := New(conf.DefaultSettings(), nil)
	queue := make(chan detection.PredictionBatch, queueSize)
	buffer := spectrogram.NewBuffer(2, nil)
	controller.AttachIngest(queue, buffer)
	return controller, queue, buffer
}

func postJSON(controller *Controller, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestIngestDetectionsAccepted(t *testing.T) {
	controller, queue, _ := newIngestFixture(4)

	rec := postJSON(controller, "/api/v1/ingest/detections", `{
		"timestamp": "2026-08-29T06:00:00Z",
		"results": [
			{"commonName": "generic bird sound", "scientificName": "", "confidence": 0.9},
			{"commonName": "Robin", "scientificName": "Erithacus rubecula", "confidence": 0.8}
		]
	}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	select {
	case batch := <-queue:
		require.Len(t, batch.Results, 2)
		assert.Equal(t, "Robin", batch.Results[1].CommonName)
		assert.InDelta(t, 0.8, batch.Results[1].Confidence, 1e-9)
	default:
		require.Fail(t, "batch was not enqueued")
	}
}

func TestIngestDetectionsRejectsMalformedJSON(t *testing.T) {
	controller, queue, _ := newIngestFixture(4)

	rec := postJSON(controller, "/api/v1/ingest/detections", `{"results": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, queue)
}

func TestIngestDetectionsValidatesSchema(t *testing.T) {
	controller, queue, _ := newIngestFixture(4)

	// Missing common name
	rec := postJSON(controller, "/api/v1/ingest/detections", `{
		"results": [{"commonName": "", "confidence": 0.5}]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Confidence out of range
	rec = postJSON(controller, "/api/v1/ingest/detections", `{
		"results": [{"commonName": "Robin", "confidence": 1.5}]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, queue, "invalid batches never reach the gate")
}

func TestIngestDetectionsShedsWhenQueueFull(t *testing.T) {
	controller, queue, _ := newIngestFixture(1)

	body := `{"results": [{"commonName": "Robin", "confidence": 0.8}]}`
	require.Equal(t, http.StatusAccepted, postJSON(controller, "/api/v1/ingest/detections", body).Code)

	rec := postJSON(controller, "/api/v1/ingest/detections", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Len(t, queue, 1)
}

func TestIngestSpectrogramChunk(t *testing.T) {
	controller, _, buffer := newIngestFixture(4)

	good := bytes.Repeat([]byte{0x42}, spectrogram.FrameSize)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/spectrogram", bytes.NewReader(good))
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, spectrogram.FrameSize, buffer.Length())

	short := bytes.Repeat([]byte{0x42}, spectrogram.FrameSize-1)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/ingest/spectrogram", bytes.NewReader(short))
	rec = httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSSEStatusEndpoint(t *testing.T) {
	controller, _, _ := newIngestFixture(1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sse/status", http.NoBody)
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)
	assert.Contains(t, rec.Body.String(), StreamDetections)
}
