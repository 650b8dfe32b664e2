package handlers

import (
	"context"
	"net/http"
)

// Capabilities records which adapters came up at process start.
type Capabilities struct {
	Whisper    bool
	OCR        bool
	Translator bool
}

// Pinger is a backing service checked by Readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	caps     Capabilities
	backends map[string]Pinger
}

// NewHealthHandler takes the optional backing services keyed by name; nil
// entries are skipped.
func NewHealthHandler(caps Capabilities, backends map[string]Pinger) *HealthHandler {
	live := make(map[string]Pinger, len(backends))
	for name, p := range backends {
		if p != nil {
			live[name] = p
		}
	}
	return &HealthHandler{caps: caps, backends: live}
}

type HealthResponse struct {
	Status           string `json:"status"`
	WhisperLoaded    bool   `json:"whisper_loaded"`
	OCRLoaded        bool   `json:"ocr_loaded"`
	TranslatorLoaded bool   `json:"translator_loaded"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "OK",
		WhisperLoaded:    h.caps.Whisper,
		OCRLoaded:        h.caps.OCR,
		TranslatorLoaded: h.caps.Translator,
	})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	for name, p := range h.backends {
		if err := p.Ping(r.Context()); err != nil {
			checks[name] = "unhealthy: " + err.Error()
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}
