package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/logger"
)

func testRepo(t *testing.T) *SampleRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSampleRepository(db)
}

func sampleAt(at time.Time, usage float64) domain.Sample {
	return domain.Sample{
		Class:   domain.ClassCPU,
		At:      at,
		Payload: domain.CPUPayload{Usage: usage},
	}
}

func TestBulkInsertAndHistory(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	err := repo.BulkInsert(ctx, []domain.Sample{
		sampleAt(base.Add(-30*time.Second), 10),
		sampleAt(base.Add(-20*time.Second), 20),
		sampleAt(base.Add(-10*time.Second), 30),
		{Class: domain.ClassMemory, At: base.Add(-10 * time.Second), Payload: domain.MemoryPayload{UsedPercent: 50}},
	})
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	got, err := repo.History(ctx, domain.ClassCPU, base.Add(-25*time.Second))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if !got[0].At.Before(got[1].At) {
		t.Error("history not ordered oldest first")
	}
	for _, s := range got {
		if s.Class != domain.ClassCPU {
			t.Errorf("history leaked another class: %s", s.Class)
		}
	}

	raw, ok := got[1].Payload.(json.RawMessage)
	if !ok {
		t.Fatalf("payload type = %T, want json.RawMessage", got[1].Payload)
	}
	var payload domain.CPUPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Usage != 30 {
		t.Errorf("payload usage = %f, want 30", payload.Usage)
	}
}

func TestBulkInsertEmptyBatch(t *testing.T) {
	repo := testRepo(t)
	if err := repo.BulkInsert(context.Background(), nil); err != nil {
		t.Errorf("empty batch should be a no-op: %v", err)
	}
}

func TestCleanupRemovesOnlyOldRows(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	err := repo.BulkInsert(ctx, []domain.Sample{
		sampleAt(base.Add(-2*time.Hour), 1),
		sampleAt(base.Add(-90*time.Minute), 2),
		sampleAt(base.Add(-5*time.Minute), 3),
	})
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	n, err := repo.Cleanup(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}

	got, err := repo.History(ctx, domain.ClassCPU, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 surviving sample, got %d", len(got))
	}
}
