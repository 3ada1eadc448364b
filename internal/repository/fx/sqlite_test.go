package fx

import (
	"context"
	"testing"
	"time"

	domain "github.com/DominikIlski/Finansista/internal/fx"
	"github.com/DominikIlski/Finansista/internal/platform/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleRate(rate float64, fetchedAt, expiresAt time.Time) domain.Rate {
	return domain.Rate{
		Base:      "EUR",
		Quote:     "PLN",
		Rate:      rate,
		Source:    "frankfurter",
		FetchedAt: fetchedAt,
		ExpiresAt: expiresAt,
	}
}

func TestSaveAndFresh(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	if err := repo.Save(ctx, sampleRate(4.32, baseTime, baseTime.Add(time.Hour))); err != nil {
		t.Fatalf("save rate: %v", err)
	}

	got, err := repo.Fresh(ctx, "EUR", "PLN", baseTime.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if got == nil {
		t.Fatal("expected a fresh rate, got nil")
	}
	if got.Rate != 4.32 {
		t.Errorf("expected rate 4.32, got %f", got.Rate)
	}

	expired, err := repo.Fresh(ctx, "EUR", "PLN", baseTime.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if expired != nil {
		t.Fatalf("expected nil for expired rate, got %+v", expired)
	}
}

func TestSave_UpsertSameSource(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	if err := repo.Save(ctx, sampleRate(4.30, baseTime, baseTime.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, sampleRate(4.35, baseTime.Add(time.Minute), baseTime.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM fx_rates").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", count)
	}

	got, err := repo.Fresh(ctx, "EUR", "PLN", baseTime)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Rate != 4.35 {
		t.Fatalf("expected upserted rate 4.35, got %+v", got)
	}
}

func TestLatestAny_IgnoresExpiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	stale := sampleRate(4.28, baseTime.Add(-3*time.Hour), baseTime.Add(-2*time.Hour))
	if err := repo.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}

	got, err := repo.LatestAny(ctx, "EUR", "PLN")
	if err != nil {
		t.Fatalf("latest any: %v", err)
	}
	if got == nil || got.Rate != 4.28 {
		t.Fatalf("expected stale rate 4.28, got %+v", got)
	}

	missing, err := repo.LatestAny(ctx, "USD", "JPY")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown pair, got %+v", missing)
	}
}

func TestPairsAreDirectional(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	if err := repo.Save(ctx, sampleRate(4.32, baseTime, baseTime.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Fresh(ctx, "PLN", "EUR", baseTime)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for inverse pair, got %+v", got)
	}
}
