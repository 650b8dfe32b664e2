package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nikhilbhutani/mediadesk/internal/upload"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type AudioResponse struct {
	Success        bool   `json:"success"`
	Transcription  string `json:"transcription"`
	Translation    string `json:"translation"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type OCRResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

type TranslateResponse struct {
	Success    bool   `json:"success"`
	Translated string `json:"translated"`
}

// statusFor maps an error from the request pipeline onto an HTTP status:
// oversized bodies are 413, validation failures 400, anything else 500.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
