package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Failed to encode response: %v", err)
	}
}

// respond completes a feature response, records request metrics and writes it
func (s *Server) respond(w http.ResponseWriter, start time.Time, response FeatureResponse) {
	if response.StatusCode < http.StatusBadRequest {
		response.Status = "success"
	} else {
		response.Status = "errored"
	}
	response.LatencyMs = time.Since(start).Milliseconds()

	if s.metrics != nil {
		code := strconv.Itoa(response.StatusCode)
		s.metrics.requestCounter.WithLabelValues(code).Inc()
		s.metrics.requestDuration.WithLabelValues(code).Observe(time.Since(start).Seconds())
	}

	writeJSON(w, response.StatusCode, response)
}
