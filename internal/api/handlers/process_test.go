package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/nikhilbhutani/mediadesk/internal/audit"
	"github.com/nikhilbhutani/mediadesk/internal/metrics"
	"github.com/nikhilbhutani/mediadesk/internal/models"
	"github.com/nikhilbhutani/mediadesk/internal/multimodal/stt"
	"github.com/nikhilbhutani/mediadesk/internal/scratch"
)

type fakeSTT struct {
	mu       sync.Mutex
	reqs     []stt.TranscriptionRequest
	seen     []string // upload contents observed while the file existed
	text     string
	language string
	err      error
}

func (f *fakeSTT) Name() string { return "fake" }

func (f *fakeSTT) Transcribe(_ context.Context, req stt.TranscriptionRequest) (*stt.TranscriptionResponse, error) {
	data, readErr := os.ReadFile(req.FilePath)
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.seen = append(f.seen, string(data))
	f.mu.Unlock()
	if readErr != nil {
		return nil, readErr
	}
	if f.err != nil {
		return nil, f.err
	}
	return &stt.TranscriptionResponse{Text: f.text, Language: f.language}, nil
}

type fakeOCR struct {
	paths []string
	text  string
	err   error
}

func (f *fakeOCR) IsAvailable() bool { return true }

func (f *fakeOCR) ExtractText(_ context.Context, path string) (string, error) {
	f.paths = append(f.paths, path)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return f.text, f.err
}

type translateCall struct{ text, source, target string }

type fakeTranslator struct {
	mu    sync.Mutex
	calls []translateCall
	err   error
}

func (f *fakeTranslator) TranslateText(_ context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, translateCall{text, source, target})
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "[" + target + "] " + text, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeRecorder) Record(_ context.Context, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

type fixture struct {
	h          *ProcessingHandler
	stt        *fakeSTT
	ocr        *fakeOCR
	translator *fakeTranslator
	recorder   *fakeRecorder
	metrics    *metrics.Metrics
	scratchDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "temp_uploads")
	store, err := scratch.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		stt:        &fakeSTT{text: "hello world", language: "en"},
		ocr:        &fakeOCR{text: "INVOICE 42\n"},
		translator: &fakeTranslator{},
		recorder:   &fakeRecorder{},
		metrics:    metrics.New(prometheus.NewRegistry()),
		scratchDir: dir,
	}
	f.h = NewProcessingHandler(ProcessingDeps{
		Scratch:    store,
		STT:        f.stt,
		OCR:        f.ocr,
		Translator: f.translator,
		Recorder:   f.recorder,
		Metrics:    f.metrics,
	})
	return f
}

func (f *fixture) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.scratchDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch dir still holds %d entries after the response", len(entries))
	}
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func counter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestProcessAudioAutoSource(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, "/process_audio", "audio_file", "memo.MP3", []byte("ID3"), nil)
	rr := httptest.NewRecorder()

	f.h.ProcessAudio(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	resp := decode[AudioResponse](t, rr)
	want := AudioResponse{
		Success:        true,
		Transcription:  "hello world",
		Translation:    "[es] hello world",
		SourceLanguage: "en",
		TargetLanguage: "es",
	}
	if resp != want {
		t.Errorf("response = %+v, want %+v", resp, want)
	}

	if len(f.stt.reqs) != 1 || f.stt.reqs[0].Language != "" {
		t.Fatalf("transcriber should be called once without a hint, got %+v", f.stt.reqs)
	}
	if f.stt.seen[0] != "ID3" {
		t.Errorf("adapter saw %q", f.stt.seen[0])
	}
	if got := f.translator.calls; len(got) != 1 || got[0].source != "" || got[0].target != "es" {
		t.Errorf("translator calls = %+v", got)
	}

	assertGone(t, f.stt.reqs[0].FilePath)
	f.assertScratchEmpty(t)
}

func TestProcessAudioWithHint(t *testing.T) {
	f := newFixture(t)
	f.stt.language = ""
	req := multipartRequest(t, "/process_audio", "audio_file", "nota.wav", []byte("RIFF"), map[string]string{
		"source_language": "pt",
		"target_language": "en",
	})
	rr := httptest.NewRecorder()

	f.h.ProcessAudio(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	resp := decode[AudioResponse](t, rr)
	if resp.SourceLanguage != "pt" {
		t.Errorf("source_language = %q, want hint when engine reports none", resp.SourceLanguage)
	}
	if f.stt.reqs[0].Language != "pt" {
		t.Errorf("hint not forwarded: %+v", f.stt.reqs[0])
	}
	if c := f.translator.calls[0]; c.source != "pt" || c.target != "en" {
		t.Errorf("translator call = %+v", c)
	}
}

func TestProcessAudioAutoTargetSkipsTranslation(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, "/process_audio", "audio_file", "a.ogg", []byte("OggS"), map[string]string{
		"target_language": "auto",
	})
	rr := httptest.NewRecorder()

	f.h.ProcessAudio(rr, req)

	resp := decode[AudioResponse](t, rr)
	if resp.Translation != resp.Transcription {
		t.Errorf("translation = %q, want transcription mirrored", resp.Translation)
	}
	if len(f.translator.calls) != 0 {
		t.Errorf("translator called %d times", len(f.translator.calls))
	}
}

func TestProcessAudioValidation(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{"missing field", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/process_audio", "", "", nil, map[string]string{"target_language": "fr"})
		}},
		{"wrong field", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/process_audio", "image_file", "a.mp3", []byte("x"), nil)
		}},
		{"disallowed extension", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/process_audio", "audio_file", "movie.mp4", []byte("x"), nil)
		}},
		{"no extension", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/process_audio", "audio_file", "x", []byte("x"), nil)
		}},
		{"not multipart", func(t *testing.T) *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/process_audio", strings.NewReader("source_language=en"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := httptest.NewRecorder()
			f.h.ProcessAudio(rr, tt.req(t))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if resp := decode[ErrorResponse](t, rr); resp.Error == "" {
				t.Error("empty error message")
			}
			if len(f.stt.reqs) != 0 {
				t.Error("adapter called for invalid upload")
			}
			f.assertScratchEmpty(t)
		})
	}
}

func TestProcessAudioAdapterFailureCleansUp(t *testing.T) {
	f := newFixture(t)
	f.stt.err = errors.New("model not loaded")
	req := multipartRequest(t, "/process_audio", "audio_file", "a.flac", []byte("fLaC"), nil)
	rr := httptest.NewRecorder()

	f.h.ProcessAudio(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if msg := decode[ErrorResponse](t, rr).Error; !strings.Contains(msg, "model not loaded") {
		t.Errorf("error %q does not carry the cause", msg)
	}
	assertGone(t, f.stt.reqs[0].FilePath)
	f.assertScratchEmpty(t)

	if got := counter(t, f.metrics.AdapterErrors.WithLabelValues("stt")); got != 1 {
		t.Errorf("adapter_errors_total{stt} = %v", got)
	}
	if e := f.recorder.entries[0]; e.StatusCode != 500 || e.Operation != models.OperationAudio || e.Filename != "a.flac" {
		t.Errorf("recorded entry = %+v", e)
	}
}

func TestProcessAudioTranslationFailureCleansUp(t *testing.T) {
	f := newFixture(t)
	f.translator.err = errors.New("quota exceeded")
	req := multipartRequest(t, "/process_audio", "audio_file", "a.aac", []byte("x"), nil)
	rr := httptest.NewRecorder()

	f.h.ProcessAudio(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	f.assertScratchEmpty(t)
}

func TestProcessAudioConcurrentSameFilename(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := []byte(strings.Repeat(string(rune('A'+i)), 512))
			req := multipartRequest(t, "/process_audio", "audio_file", "same.wav", content, nil)
			rr := httptest.NewRecorder()
			f.h.ProcessAudio(rr, req)
			codes[i] = rr.Code
		}(i)
	}
	wg.Wait()

	for i, c := range codes {
		if c != http.StatusOK {
			t.Fatalf("request %d status = %d", i, c)
		}
	}
	paths := map[string]bool{}
	for _, r := range f.stt.reqs {
		paths[r.FilePath] = true
	}
	if len(paths) != n {
		t.Fatalf("got %d distinct temp paths for %d requests", len(paths), n)
	}
	for _, s := range f.stt.seen {
		if strings.Count(s, s[:1]) != len(s) {
			t.Fatalf("adapter saw mixed upload content %q", s[:16])
		}
	}
	f.assertScratchEmpty(t)
}

func TestProcessOCR(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, "/process_ocr", "image_file", "scan.PNG", []byte("\x89PNG"), nil)
	rr := httptest.NewRecorder()

	f.h.ProcessOCR(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if resp := decode[OCRResponse](t, rr); !resp.Success || resp.Text != "INVOICE 42\n" {
		t.Errorf("response = %+v", resp)
	}
	assertGone(t, f.ocr.paths[0])
	f.assertScratchEmpty(t)
}

func TestProcessOCRFailures(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		f := newFixture(t)
		rr := httptest.NewRecorder()
		f.h.ProcessOCR(rr, multipartRequest(t, "/process_ocr", "image_file", "doc.pdf", []byte("%PDF"), nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rr.Code)
		}
		if len(f.ocr.paths) != 0 {
			t.Error("OCR called for rejected upload")
		}
	})

	t.Run("engine error", func(t *testing.T) {
		f := newFixture(t)
		f.ocr.err = errors.New("tesseract OCR: exit status 1")
		rr := httptest.NewRecorder()
		f.h.ProcessOCR(rr, multipartRequest(t, "/process_ocr", "image_file", "a.jpg", []byte("x"), nil))
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rr.Code)
		}
		assertGone(t, f.ocr.paths[0])
		f.assertScratchEmpty(t)
	})
}

func TestProcessTranslate(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"text": {"good morning"}, "lang": {"de"}}
	req := httptest.NewRequest(http.MethodPost, "/process_translate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	f.h.ProcessTranslate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if resp := decode[TranslateResponse](t, rr); !resp.Success || resp.Translated != "[de] good morning" {
		t.Errorf("response = %+v", resp)
	}
}

func TestProcessTranslateDefaultsAndMultipart(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, "/process_translate", "", "", nil, map[string]string{"text": "thanks"})
	rr := httptest.NewRecorder()

	f.h.ProcessTranslate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if c := f.translator.calls[0]; c.target != "es" {
		t.Errorf("default target = %q, want es", c.target)
	}
}

func TestProcessTranslateEmptyText(t *testing.T) {
	for _, text := range []string{"", "   \n"} {
		f := newFixture(t)
		form := url.Values{"text": {text}}
		req := httptest.NewRequest(http.MethodPost, "/process_translate", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()

		f.h.ProcessTranslate(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("text %q: status = %d, want 400", text, rr.Code)
		}
		if decode[ErrorResponse](t, rr).Error == "" {
			t.Error("missing error message")
		}
		if len(f.translator.calls) != 0 {
			t.Errorf("text %q: translator called", text)
		}
	}
}

func TestProcessTranslateFailure(t *testing.T) {
	f := newFixture(t)
	f.translator.err = errors.New("provider \"openai\" not configured")
	form := url.Values{"text": {"hi"}}
	req := httptest.NewRequest(http.MethodPost, "/process_translate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	f.h.ProcessTranslate(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := counter(t, f.metrics.AdapterErrors.WithLabelValues("translate")); got != 1 {
		t.Errorf("adapter_errors_total{translate} = %v", got)
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(&http.MaxBytesError{Limit: 10}); got != http.StatusRequestEntityTooLarge {
		t.Errorf("MaxBytesError -> %d", got)
	}
	if got := statusFor(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("plain error -> %d", got)
	}
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("temp file %s still exists (stat err = %v)", path, err)
	}
}
