package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"klv-monitor/internal/domain"
)

// SampleRepository persists published samples so a consumer that attaches
// late (a restarted GUI backfilling its plots) can read recent history.
type SampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// BulkInsert appends a batch of samples in one transaction.
func (r *SampleRepository) BulkInsert(ctx context.Context, samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO samples (class, at, payload) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		payload, err := json.Marshal(s.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload for %s: %w", s.Class, err)
		}
		if _, err := stmt.ExecContext(ctx, string(s.Class), s.At.UTC(), string(payload)); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// History returns samples of one class newer than since, oldest first.
// Payloads come back as raw JSON; the consumer knows the shape per class.
func (r *SampleRepository) History(ctx context.Context, class domain.MetricClass, since time.Time) ([]domain.Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT class, at, payload FROM samples WHERE class = ? AND at > ? ORDER BY at ASC",
		string(class), since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var (
			cls     string
			at      time.Time
			payload string
		)
		if err := rows.Scan(&cls, &at, &payload); err != nil {
			return nil, err
		}
		samples = append(samples, domain.Sample{
			Class:   domain.MetricClass(cls),
			At:      at,
			Payload: json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Cleanup removes samples older than cutoff.
func (r *SampleRepository) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM samples WHERE at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
