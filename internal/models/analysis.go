package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rahul4469/gitgrade/internal/analysis"
)

// AnalysisRecord is one completed analysis kept in the dashboard history.
// Only validated reports are stored.
type AnalysisRecord struct {
	ID            int64            `json:"id"`
	SessionKey    string           `json:"-"`
	RepositoryRef string           `json:"repository_ref"`
	Report        *analysis.Report `json:"report"`
	Mock          bool             `json:"mock"`
	CreatedAt     time.Time        `json:"created_at"`
}

type AnalysisService struct {
	DB *sql.DB
}

func NewAnalysisService(db *sql.DB) *AnalysisService {
	return &AnalysisService{DB: db}
}

func (s *AnalysisService) Create(ctx context.Context, sessionKey, repositoryRef string, report *analysis.Report, mock bool) (*AnalysisRecord, error) {
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("create analysis: %w: %v", ErrInvalidReport, err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("create analysis: marshal report: %w", err)
	}

	query := `
		INSERT INTO analyses (session_key, repository_ref, repository_name, score, level, mock, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	record := &AnalysisRecord{
		SessionKey:    sessionKey,
		RepositoryRef: repositoryRef,
		Report:        report,
		Mock:          mock,
	}
	err = s.DB.QueryRowContext(ctx, query,
		sessionKey,
		repositoryRef,
		report.RepositoryName,
		report.Score,
		string(report.Level),
		mock,
		reportJSON,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, translate("create analysis", err, ErrInvalidReport)
	}
	return record, nil
}

func (s *AnalysisService) ByID(ctx context.Context, id int64) (*AnalysisRecord, error) {
	query := `
		SELECT id, session_key, repository_ref, mock, report, created_at
		FROM analyses
		WHERE id = $1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.DB.QueryRowContext(ctx, query, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("analysis by id: %w", err)
	}
	return record, nil
}

// Recent returns the newest analyses of a session, newest first.
func (s *AnalysisService) Recent(ctx context.Context, sessionKey string, limit int) ([]*AnalysisRecord, error) {
	query := `
		SELECT id, session_key, repository_ref, mock, report, created_at
		FROM analyses
		WHERE session_key = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, query, sessionKey, limit)
	if err != nil {
		return nil, fmt.Errorf("recent analyses: %w", err)
	}
	defer rows.Close()

	var records []*AnalysisRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("recent analyses: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent analyses: %w", err)
	}
	return records, nil
}

// Delete removes an analysis owned by sessionKey.
func (s *AnalysisService) Delete(ctx context.Context, id int64, sessionKey string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.DB.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1 AND session_key = $2`, id, sessionKey)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*AnalysisRecord, error) {
	record := &AnalysisRecord{}
	var reportJSON []byte
	err := row.Scan(
		&record.ID,
		&record.SessionKey,
		&record.RepositoryRef,
		&record.Mock,
		&reportJSON,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Stored reports go through the same validation as fresh ones.
	record.Report, err = analysis.DecodeReport(reportJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return record, nil
}
