package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matzehuels/dmfbsynth/pkg/io"
)

func output(id, problem string) io.Output {
	return io.Output{
		ID:        id,
		Problem:   problem,
		Placement: map[int][2]int{1: {0, 0}},
		Schedule:  map[int][2]int{1: {0, 5}},
		Makespan:  5,
		Feasible:  true,
	}
}

func TestNewRecord(t *testing.T) {
	r := NewRecord("hash", "b1", output("abc", "pcr"))
	if r.ID != "abc" {
		t.Errorf("ID = %q, want output ID", r.ID)
	}
	if r.Problem != "pcr" || r.ProblemHash != "hash" || r.Batch != "b1" {
		t.Errorf("NewRecord() = %+v", r)
	}

	r = NewRecord("hash", "", output("", "pcr"))
	if len(r.ID) != 36 {
		t.Errorf("generated ID = %q, want uuid", r.ID)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	defer s.Close()

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	r := NewRecord("h", "", output("r1", "pcr"))
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Output.Makespan != 5 || got.Output.Schedule[1] != [2]int{0, 5} {
		t.Errorf("Get() output = %+v", got.Output)
	}

	if err := s.Delete(ctx, "r1"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, err := s.Get(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"", "../x", "a/b"} {
		if err := s.Put(context.Background(), Record{ID: id}); err == nil {
			t.Errorf("Put(%q) should fail", id)
		}
	}
}

func TestFileStoreList(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "a", Problem: "pcr", Batch: "x", CreatedAt: base},
		{ID: "b", Problem: "pcr", Batch: "y", CreatedAt: base.Add(time.Hour)},
		{ID: "c", Problem: "ivd", Batch: "x", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range records {
		if err := s.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"c", "b", "a"}},
		{"by problem", Filter{Problem: "pcr"}, []string{"b", "a"}},
		{"by batch", Filter{Batch: "x"}, []string{"c", "a"}},
		{"limit", Filter{Limit: 1}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("List() = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}
}

func TestFilterDoc(t *testing.T) {
	doc := filterDoc(Filter{Problem: "pcr", Batch: "x", Limit: 3})
	if doc["problem"] != "pcr" || doc["batch"] != "x" || len(doc) != 2 {
		t.Errorf("filterDoc() = %v", doc)
	}
	if len(filterDoc(Filter{})) != 0 {
		t.Error("empty filter should match everything")
	}
}
