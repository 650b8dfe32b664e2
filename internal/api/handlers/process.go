package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/mediadesk/internal/audit"
	"github.com/nikhilbhutani/mediadesk/internal/metrics"
	"github.com/nikhilbhutani/mediadesk/internal/models"
	"github.com/nikhilbhutani/mediadesk/internal/multimodal/stt"
	"github.com/nikhilbhutani/mediadesk/internal/ocr"
	"github.com/nikhilbhutani/mediadesk/internal/scratch"
	"github.com/nikhilbhutani/mediadesk/internal/translate"
	"github.com/nikhilbhutani/mediadesk/internal/upload"
)

const defaultTargetLanguage = "es"

// Recorder persists per-request processing metadata.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// ProcessingHandler serves the three processing endpoints. Each request runs
// validate, store, process, clean up and respond in order on its own
// goroutine; the stored upload is always removed before the response is
// written.
type ProcessingHandler struct {
	scratch    *scratch.Storage
	stt        stt.STTProvider
	ocr        ocr.Extractor
	translator translate.Translator
	recorder   Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type ProcessingDeps struct {
	Scratch    *scratch.Storage
	STT        stt.STTProvider
	OCR        ocr.Extractor
	Translator translate.Translator
	Recorder   Recorder         // optional
	Metrics    *metrics.Metrics // optional
}

func NewProcessingHandler(deps ProcessingDeps) *ProcessingHandler {
	return &ProcessingHandler{
		scratch:    deps.Scratch,
		stt:        deps.STT,
		ocr:        deps.OCR,
		translator: deps.Translator,
		recorder:   deps.Recorder,
		metrics:    deps.Metrics,
		logger:     slog.With("component", "processing"),
	}
}

// ProcessAudio transcribes an uploaded recording and translates the text.
func (h *ProcessingHandler) ProcessAudio(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	entry := audit.Entry{Operation: models.OperationAudio}

	file, hdr, err := uploadedFile(r, "audio_file", upload.Audio)
	if err != nil {
		h.fail(w, r, entry, start, err)
		return
	}
	defer file.Close()

	source := formValue(r, "source_language", translate.Auto)
	target := formValue(r, "target_language", defaultTargetLanguage)
	entry.Filename, entry.SourceLang, entry.TargetLang = hdr.Filename, source, target

	var resp AudioResponse
	err = h.scratch.WithTempFile(file, hdr.Filename, func(path string) error {
		var err error
		resp, err = h.transcribeAndTranslate(r.Context(), path, source, target)
		return err
	})
	if err != nil {
		h.fail(w, r, entry, start, fmt.Errorf("error processing audio: %w", err))
		return
	}

	h.succeed(w, r, entry, start, resp)
}

func (h *ProcessingHandler) transcribeAndTranslate(ctx context.Context, path, source, target string) (AudioResponse, error) {
	req := stt.TranscriptionRequest{FilePath: path}
	if source != translate.Auto {
		req.Language = source
	}

	tr, err := h.stt.Transcribe(ctx, req)
	if err != nil {
		h.adapterFailed("stt")
		return AudioResponse{}, err
	}

	detected := tr.Language
	if detected == "" {
		detected = source
	}

	translation := tr.Text
	if target != translate.Auto && strings.TrimSpace(tr.Text) != "" {
		translation, err = h.translator.TranslateText(ctx, tr.Text, req.Language, target)
		if err != nil {
			h.adapterFailed("translate")
			return AudioResponse{}, err
		}
	}

	return AudioResponse{
		Success:        true,
		Transcription:  tr.Text,
		Translation:    translation,
		SourceLanguage: detected,
		TargetLanguage: target,
	}, nil
}

// ProcessOCR extracts printed text from an uploaded image.
func (h *ProcessingHandler) ProcessOCR(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	entry := audit.Entry{Operation: models.OperationOCR}

	file, hdr, err := uploadedFile(r, "image_file", upload.Image)
	if err != nil {
		h.fail(w, r, entry, start, err)
		return
	}
	defer file.Close()
	entry.Filename = hdr.Filename

	var text string
	err = h.scratch.WithTempFile(file, hdr.Filename, func(path string) error {
		var err error
		if text, err = h.ocr.ExtractText(r.Context(), path); err != nil {
			h.adapterFailed("ocr")
		}
		return err
	})
	if err != nil {
		h.fail(w, r, entry, start, fmt.Errorf("error processing image: %w", err))
		return
	}

	h.succeed(w, r, entry, start, OCRResponse{Success: true, Text: text})
}

// ProcessTranslate translates submitted text. There is no file stage.
func (h *ProcessingHandler) ProcessTranslate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	entry := audit.Entry{Operation: models.OperationTranslate}

	if err := parseForm(r); err != nil {
		h.fail(w, r, entry, start, err)
		return
	}

	text := r.FormValue("text")
	lang := formValue(r, "lang", defaultTargetLanguage)
	entry.SourceLang, entry.TargetLang = translate.Auto, lang

	if strings.TrimSpace(text) == "" {
		h.fail(w, r, entry, start, upload.Invalid("no text provided"))
		return
	}

	translated, err := h.translator.TranslateText(r.Context(), text, translate.Auto, lang)
	if err != nil {
		h.adapterFailed("translate")
		h.fail(w, r, entry, start, fmt.Errorf("error translating text: %w", err))
		return
	}

	h.succeed(w, r, entry, start, TranslateResponse{Success: true, Translated: translated})
}

func (h *ProcessingHandler) succeed(w http.ResponseWriter, r *http.Request, entry audit.Entry, start time.Time, body interface{}) {
	writeJSON(w, http.StatusOK, body)
	entry.StatusCode = http.StatusOK
	h.record(r, entry, start)
}

func (h *ProcessingHandler) fail(w http.ResponseWriter, r *http.Request, entry audit.Entry, start time.Time, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("processing failed",
			"operation", entry.Operation,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, err.Error())
	entry.StatusCode = status
	entry.Error = err.Error()
	h.record(r, entry, start)
}

func (h *ProcessingHandler) record(r *http.Request, entry audit.Entry, start time.Time) {
	if h.recorder == nil {
		return
	}
	entry.RequestID = chimiddleware.GetReqID(r.Context())
	entry.IPAddress = clientIP(r)
	entry.Duration = time.Since(start)

	if err := h.recorder.Record(context.WithoutCancel(r.Context()), entry); err != nil {
		h.logger.Warn("failed to record processing log", "error", err)
	}
}

func (h *ProcessingHandler) adapterFailed(adapter string) {
	if h.metrics != nil {
		h.metrics.AdapterErrors.WithLabelValues(adapter).Inc()
	}
}
