package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shirley959/amazon-final/internal/infra"
	"github.com/shirley959/amazon-final/internal/sqlinline"
)

// PostgresStore keeps records in the relay_jobs table.
type PostgresStore struct {
	sql infra.SQLExecutor
}

func NewPostgresStore(sql infra.SQLExecutor) *PostgresStore {
	return &PostgresStore{sql: sql}
}

// EnsureSchema creates the relay_jobs table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QCreateRelayJobsTable); err != nil {
		return fmt.Errorf("jobstore: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Job.ID == "" {
		return fmt.Errorf("jobstore: record without job id")
	}
	raw, err := json.Marshal(rec.Job)
	if err != nil {
		return fmt.Errorf("jobstore: encode job: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err = s.sql.QueryRow(ctx, sqlinline.QUpsertRelayJob,
		rec.Job.ID,
		rec.CampaignID,
		rec.Position,
		string(rec.Job.Status),
		string(rec.Job.ErrorKind),
		raw,
		rec.AssetKey,
		rec.Title,
		rec.Subtitle,
		rec.CreatedAt,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("jobstore: save %s: %w", rec.Job.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.sql.QueryRow(ctx, sqlinline.QSelectRelayJob, id))
	if infra.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByCampaign(ctx context.Context, campaignID string) ([]Record, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectRelayJobsByCampaign, campaignID)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list campaign %s: %w", campaignID, err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("jobstore: list campaign %s: %w", campaignID, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobstore: list campaign %s: %w", campaignID, err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec Record
		id  string
		raw []byte
	)
	if err := row.Scan(&id, &rec.CampaignID, &rec.Position, &raw, &rec.AssetKey, &rec.Title, &rec.Subtitle, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &rec.Job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	rec.Job.ID = id
	return &rec, nil
}

var _ Store = (*PostgresStore)(nil)
