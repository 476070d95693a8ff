package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/phinze/rawdelta/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoad(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 14, 9, 26, 0, 0, time.UTC)
	samples := []store.Sample{
		{T: 10, DX: 5, DY: -2},
		{T: 20, DX: 0, DY: 10},
		{T: 35, DX: -3, DY: -3},
	}

	s, err := db.Save(ctx, started, samples, "flick test")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.ID == "" || s.Count != 3 {
		t.Fatalf("unexpected session %+v", s)
	}

	got, loaded, err := db.Load(ctx, s.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.StartedAt.Equal(started) || got.Note != "flick test" {
		t.Errorf("unexpected session metadata %+v", got)
	}
	if len(loaded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(loaded))
	}
	for i := range samples {
		if loaded[i] != samples[i] {
			t.Errorf("sample %d = %+v, want %+v", i, loaded[i], samples[i])
		}
	}
}

func TestSaveEmptySession(t *testing.T) {
	db := openTestDB(t)
	s, err := db.Save(context.Background(), time.Now(), nil, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	_, loaded, err := db.Load(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected no samples, got %d", len(loaded))
	}
}

func TestListAndDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first, err := db.Save(ctx, time.Now(), []store.Sample{{T: 1, DX: 1}}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := db.Save(ctx, time.Now(), []store.Sample{{T: 1, DX: 2}}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	sessions, err := db.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", sessions)
	}

	if err := db.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := db.Load(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := db.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestDialectorSelection(t *testing.T) {
	tests := []struct {
		dsn    string
		name   string
		sqlite bool
	}{
		{dsn: "sessions.db", name: "sqlite", sqlite: true},
		{dsn: "postgres://localhost/rawdelta", name: "postgres"},
		{dsn: "mysql://user:pw@tcp(localhost:3306)/rawdelta", name: "mysql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dial, isSQLite := dialector(tt.dsn)
			if isSQLite != tt.sqlite {
				t.Fatalf("sqlite = %v, want %v", isSQLite, tt.sqlite)
			}
			if dial.Name() != tt.name {
				t.Fatalf("dialector = %q, want %q", dial.Name(), tt.name)
			}
		})
	}
}
