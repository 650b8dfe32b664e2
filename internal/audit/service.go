package audit

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/mediadesk/internal/models"
)

// querier is the part of *pgxpool.Pool the service uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Service struct {
	db querier
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type Entry struct {
	RequestID  string
	Operation  models.Operation
	Filename   string
	SourceLang string
	TargetLang string
	StatusCode int
	Error      string
	Duration   time.Duration
	IPAddress  string
}

func (s *Service) Record(ctx context.Context, entry Entry) error {
	var ip *netip.Addr
	if entry.IPAddress != "" {
		parsed, err := netip.ParseAddr(entry.IPAddress)
		if err == nil {
			ip = &parsed
		}
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO processing_log (id, request_id, operation, filename, source_lang, target_lang, status_code, error, duration_ms, client_ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), entry.RequestID, string(entry.Operation), entry.Filename, entry.SourceLang, entry.TargetLang,
		entry.StatusCode, entry.Error, entry.Duration.Milliseconds(), ip,
	)
	if err != nil {
		return fmt.Errorf("insert processing log: %w", err)
	}
	return nil
}

type Query struct {
	Operation models.Operation
	Since     *time.Time
	Limit     int
}

// Recent returns the newest log rows matching q.
func (s *Service) Recent(ctx context.Context, q Query) ([]models.ProcessingLog, error) {
	query, args := recentQuery(q)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processing log: %w", err)
	}
	defer rows.Close()

	var logs []models.ProcessingLog
	for rows.Next() {
		var l models.ProcessingLog
		var op string
		if err := rows.Scan(&l.ID, &l.RequestID, &op, &l.Filename, &l.SourceLang, &l.TargetLang,
			&l.StatusCode, &l.Error, &l.DurationMs, &l.ClientIP, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan processing log: %w", err)
		}
		l.Operation = models.Operation(op)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func recentQuery(q Query) (string, []interface{}) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, request_id, operation, filename, source_lang, target_lang, status_code, error, duration_ms, client_ip, created_at
			  FROM processing_log WHERE TRUE`
	args := []interface{}{}
	argIdx := 1

	if q.Operation != "" {
		query += fmt.Sprintf(" AND operation = $%d", argIdx)
		args = append(args, string(q.Operation))
		argIdx++
	}
	if q.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.Since)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, q.Limit)
	return query, args
}
