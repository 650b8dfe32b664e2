package models

import (
	"net/netip"
	"time"

	"github.com/google/uuid"
)

type Operation string

const (
	OperationAudio     Operation = "audio"
	OperationOCR       Operation = "ocr"
	OperationTranslate Operation = "translate"
)

// ProcessingLog is the per-request metadata kept for auditing. It never holds
// uploaded content or adapter output.
type ProcessingLog struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	RequestID  string      `json:"request_id" db:"request_id"`
	Operation  Operation   `json:"operation" db:"operation"`
	Filename   string      `json:"filename,omitempty" db:"filename"`
	SourceLang string      `json:"source_lang,omitempty" db:"source_lang"`
	TargetLang string      `json:"target_lang,omitempty" db:"target_lang"`
	StatusCode int         `json:"status_code" db:"status_code"`
	Error      string      `json:"error,omitempty" db:"error"`
	DurationMs int64       `json:"duration_ms" db:"duration_ms"`
	ClientIP   *netip.Addr `json:"client_ip,omitempty" db:"client_ip"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}
