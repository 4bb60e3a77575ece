package database

import (
	"context"
	"fmt"
	"testing"
)

// runStoreContract exercises the behavior every backend must share
func runStoreContract(t *testing.T, newStore func(t *testing.T) DatabaseService) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store lists nothing and does not exist", func(t *testing.T) {
		ds := newStore(t)
		records, err := ds.GetRecords(ctx)
		if err != nil {
			t.Fatalf("GetRecords error: %v", err)
		}
		if records == nil || len(records) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", records)
		}
		exists, err := ds.DoesDatabaseExist(ctx)
		if err != nil {
			t.Fatalf("DoesDatabaseExist error: %v", err)
		}
		if exists {
			t.Fatal("expected store to not exist before the first append")
		}
	})

	t.Run("append keeps insertion order", func(t *testing.T) {
		ds := newStore(t)
		appendN(t, ds, 3)
		records, err := ds.GetRecords(ctx)
		if err != nil {
			t.Fatalf("GetRecords error: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		for i, record := range records {
			if record.Timestamp != testTimestamp(i) {
				t.Errorf("record %d: expected timestamp %s, got %s", i, testTimestamp(i), record.Timestamp)
			}
			if record.Analyzed.Name != fmt.Sprintf("name-%d", i) {
				t.Errorf("record %d: unexpected analyzed %+v", i, record.Analyzed)
			}
		}
		exists, err := ds.DoesDatabaseExist(ctx)
		if err != nil || !exists {
			t.Fatalf("expected store to exist after append, got %v (err %v)", exists, err)
		}
	})

	t.Run("append caps at the most recent records", func(t *testing.T) {
		ds := newStore(t)
		appendN(t, ds, MaxRecords+5)
		records, err := ds.GetRecords(ctx)
		if err != nil {
			t.Fatalf("GetRecords error: %v", err)
		}
		if len(records) != MaxRecords {
			t.Fatalf("expected %d records, got %d", MaxRecords, len(records))
		}
		if records[0].Timestamp != testTimestamp(5) {
			t.Errorf("expected oldest kept record %s, got %s", testTimestamp(5), records[0].Timestamp)
		}
		if records[MaxRecords-1].Timestamp != testTimestamp(MaxRecords+4) {
			t.Errorf("expected newest record %s, got %s", testTimestamp(MaxRecords+4), records[MaxRecords-1].Timestamp)
		}
	})

	t.Run("update replaces analyzed of the matching record only", func(t *testing.T) {
		ds := newStore(t)
		appendN(t, ds, 2)
		updated := Analyzed{Company: "ACME Corp", Name: "Jane Doe", Phone: "555-1234"}
		found, err := ds.UpdateAnalyzed(ctx, testTimestamp(1), updated)
		if err != nil {
			t.Fatalf("UpdateAnalyzed error: %v", err)
		}
		if !found {
			t.Fatal("expected record to be found")
		}
		records, _ := ds.GetRecords(ctx)
		if records[1].Analyzed != updated {
			t.Errorf("expected %+v, got %+v", updated, records[1].Analyzed)
		}
		if records[0].Analyzed.Name != "name-0" {
			t.Errorf("expected other record untouched, got %+v", records[0].Analyzed)
		}
		if records[1].Text != "text-1" {
			t.Errorf("expected text to be preserved, got %q", records[1].Text)
		}
	})

	t.Run("update with unknown timestamp leaves store unchanged", func(t *testing.T) {
		ds := newStore(t)
		appendN(t, ds, 2)
		before, _ := ds.GetRecords(ctx)
		found, err := ds.UpdateAnalyzed(ctx, "2024-01-01T00:00:00", Analyzed{Name: "ghost"})
		if err != nil {
			t.Fatalf("UpdateAnalyzed error: %v", err)
		}
		if found {
			t.Fatal("expected unknown timestamp to report not found")
		}
		after, _ := ds.GetRecords(ctx)
		if fmt.Sprint(before) != fmt.Sprint(after) {
			t.Errorf("store changed: before %v after %v", before, after)
		}
	})

	t.Run("delete removes exactly the matching record", func(t *testing.T) {
		ds := newStore(t)
		appendN(t, ds, 3)
		removed, err := ds.DeleteRecords(ctx, testTimestamp(1))
		if err != nil {
			t.Fatalf("DeleteRecords error: %v", err)
		}
		if removed != 1 {
			t.Fatalf("expected 1 removed, got %d", removed)
		}
		records, _ := ds.GetRecords(ctx)
		if len(records) != 2 || records[0].Timestamp != testTimestamp(0) || records[1].Timestamp != testTimestamp(2) {
			t.Errorf("unexpected remaining records %v", records)
		}

		removed, err = ds.DeleteRecords(ctx, "2024-01-01T00:00:00")
		if err != nil {
			t.Fatalf("DeleteRecords(unknown) error: %v", err)
		}
		if removed != 0 {
			t.Errorf("expected 0 removed for unknown timestamp, got %d", removed)
		}
		records, _ = ds.GetRecords(ctx)
		if len(records) != 2 {
			t.Errorf("expected 2 records after unknown delete, got %d", len(records))
		}
	})

	t.Run("store still exists after deleting everything", func(t *testing.T) {
		ds := newStore(t)
		appendN(t, ds, 1)
		if _, err := ds.DeleteRecords(ctx, testTimestamp(0)); err != nil {
			t.Fatalf("DeleteRecords error: %v", err)
		}
		exists, err := ds.DoesDatabaseExist(ctx)
		if err != nil || !exists {
			t.Fatalf("expected store to still exist, got %v (err %v)", exists, err)
		}
		records, _ := ds.GetRecords(ctx)
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})

	t.Run("image snapshot round-trips", func(t *testing.T) {
		ds := newStore(t)
		record := Record{Timestamp: testTimestamp(0), Filename: "card.png", Text: "t", Image: "aGVsbG8="}
		if _, err := ds.AppendRecord(ctx, record); err != nil {
			t.Fatalf("AppendRecord error: %v", err)
		}
		records, _ := ds.GetRecords(ctx)
		if len(records) != 1 || records[0] != record {
			t.Errorf("expected %+v, got %+v", record, records)
		}
	})
}

func testTimestamp(i int) string {
	return fmt.Sprintf("2025-03-01T10:00:00.%06d", i)
}

func appendN(t *testing.T, ds DatabaseService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		record := Record{
			Timestamp: testTimestamp(i),
			Filename:  fmt.Sprintf("card-%d.jpg", i),
			Text:      fmt.Sprintf("text-%d", i),
			Analyzed:  Analyzed{Name: fmt.Sprintf("name-%d", i)},
		}
		stored, err := ds.AppendRecord(context.Background(), record)
		if err != nil {
			t.Fatalf("AppendRecord #%d error: %v", i, err)
		}
		if stored != record {
			t.Fatalf("AppendRecord #%d returned %+v, want %+v", i, stored, record)
		}
	}
}
