package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// HistoryRepository persists processing outcomes with a hard retention
// window. Expired rows are invisible to every read and removed eagerly on
// each insert, so a record past its window can never be served even if the
// scheduled purge has not run yet.
type HistoryRepository struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

func NewHistoryRepository(db *sql.DB, retention time.Duration) *HistoryRepository {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &HistoryRepository{db: db, retention: retention, now: time.Now}
}

func (r *HistoryRepository) Insert(ctx context.Context, record *domain.HistoryRecord) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM processing_history WHERE expires_at < $1`, r.now().UTC()); err != nil {
		return fmt.Errorf("evict expired history: %w", err)
	}

	var resultJSON []byte
	if record.Result != nil {
		data, err := json.Marshal(record.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = data
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO processing_history (
	document_id, status, priority, result, error_code, error_message, created_at, expires_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (document_id) DO UPDATE SET
	status = EXCLUDED.status,
	priority = EXCLUDED.priority,
	result = EXCLUDED.result,
	error_code = EXCLUDED.error_code,
	error_message = EXCLUDED.error_message,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at
`,
		record.DocumentID, record.Status, string(record.Priority), resultJSON,
		record.ErrorCode, record.ErrorMessage, record.CreatedAt, record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

func (r *HistoryRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.HistoryRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, status, priority, result, error_code, error_message, created_at, expires_at
FROM processing_history
WHERE document_id = $1 AND expires_at >= $2
`, documentID, r.now().UTC())

	record, err := scanHistoryRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch history record", fmt.Errorf("document %s", documentID))
		}
		return nil, err
	}
	return record, nil
}

func (r *HistoryRepository) Query(ctx context.Context, query domain.HistoryQuery) ([]domain.HistoryRecord, int, error) {
	now := r.now().UTC()
	where := `WHERE expires_at >= $1`
	args := []any{now}

	if query.Status != "" {
		args = append(args, query.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if query.Priority != "" {
		args = append(args, string(query.Priority))
		where += ` AND priority = $` + strconv.Itoa(len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM processing_history ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history records: %w", err)
	}

	pageQuery := `
SELECT document_id, status, priority, result, error_code, error_message, created_at, expires_at
FROM processing_history ` + where + ` ORDER BY created_at DESC`
	if query.Limit > 0 {
		args = append(args, query.Limit)
		pageQuery += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		pageQuery += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query history records: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		record, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history records: %w", err)
	}
	return records, total, nil
}

func (r *HistoryRepository) Statistics(ctx context.Context) (*domain.HistoryStatistics, error) {
	now := r.now().UTC()
	stats := &domain.HistoryStatistics{
		FormatDistribution: map[domain.FileFormat]int{},
		RetentionDays:      int(r.retention.Hours() / 24),
	}

	row := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE status = 'pass'),
	COUNT(*) FILTER (WHERE status = 'requires_review'),
	COUNT(*) FILTER (WHERE status = 'failed'),
	COALESCE(AVG((result->'timings'->>'total_seconds')::double precision), 0)
FROM processing_history
WHERE expires_at >= $1
`, now)
	if err := row.Scan(
		&stats.TotalRecords, &stats.PassedRecords, &stats.ReviewRecords,
		&stats.FailedRecords, &stats.AverageTimeSeconds,
	); err != nil {
		return nil, fmt.Errorf("scan history statistics: %w", err)
	}
	if stats.TotalRecords > 0 {
		stats.SuccessRate = float64(stats.PassedRecords) / float64(stats.TotalRecords)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT result->>'format', COUNT(*)
FROM processing_history
WHERE expires_at >= $1 AND result IS NOT NULL
GROUP BY result->>'format'
`, now)
	if err != nil {
		return nil, fmt.Errorf("query format distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, fmt.Errorf("scan format distribution: %w", err)
		}
		stats.FormatDistribution[domain.FileFormat(format)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate format distribution: %w", err)
	}
	return stats, nil
}

func (r *HistoryRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM processing_history WHERE expires_at < $1`, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryRecord(row rowScanner) (*domain.HistoryRecord, error) {
	var record domain.HistoryRecord
	var priority string
	var resultRaw []byte

	err := row.Scan(
		&record.DocumentID, &record.Status, &priority, &resultRaw,
		&record.ErrorCode, &record.ErrorMessage, &record.CreatedAt, &record.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	record.Priority = domain.ReviewPriority(priority)
	if len(resultRaw) > 0 {
		var result domain.ProcessingResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		record.Result = &result
	}
	return &record, nil
}
