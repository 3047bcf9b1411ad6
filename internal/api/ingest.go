// ingest.go: the inbound boundary where the classifier and the spectrogram
// producer hand data to the core. Payloads are schema-validated into typed
// values here; the gate engine never sees malformed data.
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdstream/internal/detection"
	"github.com/tphakala/birdstream/internal/spectrogram"
)

// maxSpectrogramBody bounds the spectrogram chunk body read.
const maxSpectrogramBody = spectrogram.FrameSize + 1

// AttachIngest registers the inbound endpoints. detectionQueue is the
// bounded queue drained by the detection stream worker; buffer stages
// spectrogram bytes for the spectrogram worker.
func (c *Controller) AttachIngest(detectionQueue chan<- detection.PredictionBatch, buffer *spectrogram.Buffer) {
	c.Group.POST("/ingest/detections", c.ingestDetections(detectionQueue))
	c.Group.POST("/ingest/spectrogram", c.ingestSpectrogram(buffer))
}

// ingestDetections decodes and validates one prediction batch, then
// enqueues it for gating. A full queue sheds the batch rather than
// blocking the producer.
func (c *Controller) ingestDetections(queue chan<- detection.PredictionBatch) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var batch detection.PredictionBatch
		if err := ctx.Bind(&batch); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "malformed prediction batch: " + err.Error(),
			})
		}

		for i := range batch.Results {
			r := &batch.Results[i]
			if r.CommonName == "" {
				return ctx.JSON(http.StatusBadRequest, map[string]string{
					"error": "recognition missing commonName",
				})
			}
			if r.Confidence < 0 || r.Confidence > 1 {
				return ctx.JSON(http.StatusBadRequest, map[string]string{
					"error": "recognition confidence out of range [0,1]",
				})
			}
		}
		if batch.Timestamp.IsZero() {
			batch.Timestamp = time.Now()
		}

		select {
		case queue <- batch:
			return ctx.JSON(http.StatusAccepted, map[string]int{
				"results": len(batch.Results),
			})
		default:
			if c.metrics != nil {
				c.metrics.Stream.RecordDroppedFrame(StreamDetections)
			}
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "detection queue full",
			})
		}
	}
}

// ingestSpectrogram accepts one raw frame-sized byte chunk.
func (c *Controller) ingestSpectrogram(buffer *spectrogram.Buffer) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxSpectrogramBody))
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "failed to read spectrogram chunk: " + err.Error(),
			})
		}
		if err := buffer.WriteChunk(data); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		return ctx.NoContent(http.StatusAccepted)
	}
}
