package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"trustlens/internal/domain"
	"trustlens/internal/ports"
	"trustlens/internal/ports/portstest"
)

var _ ports.Store = (*DB)(nil)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreMemory(t *testing.T) {
	portstest.TestStore(t, openTestDB(t, Memory))
}

func TestStoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trustlens.db")
	portstest.TestStore(t, openTestDB(t, path))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t, Memory)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestReviewRequiresWebsite(t *testing.T) {
	db := openTestDB(t, Memory)
	_, err := db.CreateReview(context.Background(), domain.Review{WebsiteID: 999, Rating: 3, CreatedAt: time.Now()})
	if err == nil {
		t.Error("expected foreign key violation")
	}
}

func TestListStaleAcrossZones(t *testing.T) {
	db := openTestDB(t, Memory)
	ctx := context.Background()
	zone := time.FixedZone("UTC+10", 10*60*60)

	analyzed := time.Date(2024, 6, 1, 8, 0, 0, 0, zone)
	if _, err := db.Upsert(ctx, domain.Website{
		Domain:          "zoned.example",
		TrustScore:      50,
		LastAnalyzed:    analyzed,
		PhishingRisk:    domain.RiskMedium,
		MalwareRisk:     domain.RiskMedium,
		ScamRisk:        domain.RiskMedium,
		BlacklistStatus: domain.BlacklistUnknown,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// one minute later, expressed in UTC
	stale, err := db.ListStale(ctx, analyzed.Add(time.Minute).UTC(), 10)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(stale) != 1 {
		t.Errorf("expected the record to be stale, got %v", stale)
	}
}
