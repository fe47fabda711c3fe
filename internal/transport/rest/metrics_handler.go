package rest

import (
	"net/http"
	"strconv"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/hub"
	"klv-monitor/internal/storage/sqlite"
)

type MetricsHandler struct {
	hub     *hub.Hub
	samples *sqlite.SampleRepository
}

func NewMetricsHandler(h *hub.Hub, samples *sqlite.SampleRepository) *MetricsHandler {
	return &MetricsHandler{hub: h, samples: samples}
}

type classReading struct {
	Sample *domain.Sample    `json:"sample,omitempty"`
	Stale  *domain.StaleInfo `json:"stale,omitempty"`
}

// Latest serves the most recent sample per class, with the stale marker when
// a class has stopped refreshing. ?class= narrows to one class.
func (h *MetricsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	classes := domain.Classes()
	if raw := r.URL.Query().Get("class"); raw != "" {
		class := domain.MetricClass(raw)
		if !class.Valid() {
			JSONError(w, http.StatusBadRequest, "Unknown metric class")
			return
		}
		classes = []domain.MetricClass{class}
	}

	readings := make(map[domain.MetricClass]classReading, len(classes))
	for _, class := range classes {
		var reading classReading
		if s, ok := h.hub.Latest(class); ok {
			reading.Sample = &s
		}
		if info, ok := h.hub.Stale(class); ok {
			reading.Stale = &info
		}
		readings[class] = reading
	}

	JSONSuccess(w, http.StatusOK, APIResponse{Data: readings})
}

// History serves recorded samples of one class covering the last ?seconds=
// (default 60, bounded by what retention keeps around).
func (h *MetricsHandler) History(w http.ResponseWriter, r *http.Request) {
	class := domain.MetricClass(r.URL.Query().Get("class"))
	if !class.Valid() {
		JSONError(w, http.StatusBadRequest, "Unknown metric class")
		return
	}

	seconds := 60
	if raw := r.URL.Query().Get("seconds"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			JSONError(w, http.StatusBadRequest, "seconds must be a positive integer")
			return
		}
		seconds = parsed
	}

	since := time.Now().Add(-time.Duration(seconds) * time.Second)
	samples, err := h.samples.History(r.Context(), class, since)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{Data: samples})
}
