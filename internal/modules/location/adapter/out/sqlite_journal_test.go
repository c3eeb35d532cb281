package out_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	locationadapterout "geowatch/internal/modules/location/adapter/out"
	"geowatch/internal/modules/location/domain"
)

func TestSQLiteJournalRecentNewestFirst(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "journal.db")
	journal, err := locationadapterout.NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	defer journal.Close()

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	path := []domain.Transition{
		{At: base, From: domain.StateIdle, To: domain.StateAcquiringPermission, Reason: "start watch"},
		{At: base.Add(time.Second), From: domain.StateAcquiringPermission, To: domain.StateWatching, HandleID: "watch-1"},
		{At: base.Add(2 * time.Second), From: domain.StateWatching, To: domain.StateStoppingWatch, HandleID: "watch-1", Reason: "stop requested"},
	}
	for _, transition := range path {
		if err := journal.Record(ctx, transition); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := journal.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(recent))
	}
	if recent[0].To != domain.StateStoppingWatch || recent[1].To != domain.StateWatching {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[0].HandleID != "watch-1" || recent[0].Reason != "stop requested" {
		t.Fatalf("unexpected fields: %+v", recent[0])
	}
	if !recent[0].At.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("unexpected time: %s", recent[0].At)
	}
}

func TestSQLiteJournalSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	journal, err := locationadapterout.NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	if err := journal.Record(ctx, domain.Transition{At: time.Now(), From: domain.StateIdle, To: domain.StateAcquiringPermission}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := locationadapterout.NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	recent, err := reopened.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 transition after reopen, got %d", len(recent))
	}
}
