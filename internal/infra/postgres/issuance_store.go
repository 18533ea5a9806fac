package postgres

import (
	"context"
	"errors"
	"fmt"

	"cyber-eval-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// IssuanceStore persists issuance correlation records in the issuance_records table.
type IssuanceStore struct {
	pool *pgxpool.Pool
}

func NewIssuanceStore(pool *pgxpool.Pool) *IssuanceStore {
	return &IssuanceStore{pool: pool}
}

const issuanceColumns = `state, request_id, session_id, subject, email, score, total, url, qr_code, expiry, status, last_error, created_at, updated_at`

func (s *IssuanceStore) Create(ctx context.Context, record domain.IssuanceRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO issuance_records (`+issuanceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		record.State, record.RequestID, record.SessionID, record.Subject, record.Email,
		record.Score, record.Total, record.URL, record.QRCode, nullableJSON(record.Expiry), string(record.Status), nullableJSON(record.LastError),
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert issuance record: %w", err)
	}
	return nil
}

func (s *IssuanceStore) FindByState(ctx context.Context, state string) (domain.IssuanceRecord, error) {
	return s.findOne(ctx, `SELECT `+issuanceColumns+` FROM issuance_records WHERE state=$1`, state)
}

func (s *IssuanceStore) FindByRequestID(ctx context.Context, requestID string) (domain.IssuanceRecord, error) {
	return s.findOne(ctx,
		`SELECT `+issuanceColumns+` FROM issuance_records WHERE request_id=$1 ORDER BY created_at DESC LIMIT 1`,
		requestID)
}

func (s *IssuanceStore) UpdateStatus(ctx context.Context, update domain.StatusUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE issuance_records
		 SET status=$2, last_error=$3, updated_at=$4,
		     request_id=CASE WHEN request_id = '' THEN $5 ELSE request_id END
		 WHERE state=$1`,
		update.State, string(update.Status), nullableJSON(update.Error), update.UpdatedAt, update.RequestID)
	if err != nil {
		return fmt.Errorf("update issuance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (s *IssuanceStore) findOne(ctx context.Context, query string, arg string) (domain.IssuanceRecord, error) {
	var (
		record    domain.IssuanceRecord
		status    string
		expiry    []byte
		lastError []byte
	)
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&record.State, &record.RequestID, &record.SessionID, &record.Subject, &record.Email,
		&record.Score, &record.Total, &record.URL, &record.QRCode, &expiry, &status, &lastError, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IssuanceRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.IssuanceRecord{}, fmt.Errorf("load issuance record: %w", err)
	}
	record.Status = domain.IssuanceStatus(status)
	if len(expiry) > 0 {
		record.Expiry = expiry
	}
	if len(lastError) > 0 {
		record.LastError = lastError
	}
	return record, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
