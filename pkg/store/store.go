package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/dmfbsynth/pkg/io"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Record is one persisted pipeline run. Batches of records form training
// sets for learned synthesis methods.
type Record struct {
	ID          string    `json:"id" bson:"_id"`
	Problem     string    `json:"problem" bson:"problem"`
	ProblemHash string    `json:"problem_hash" bson:"problem_hash"`
	Batch       string    `json:"batch,omitempty" bson:"batch,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	Output      io.Output `json:"output" bson:"output"`
}

// NewRecord wraps a pipeline output in a record. The output ID is reused
// when present so that a result and its record share one identifier.
func NewRecord(problemHash, batch string, out io.Output) Record {
	id := out.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Record{
		ID:          id,
		Problem:     out.Problem,
		ProblemHash: problemHash,
		Batch:       batch,
		CreatedAt:   time.Now().UTC(),
		Output:      out,
	}
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Problem string
	Batch   string
	Limit   int
}

func (f Filter) match(r Record) bool {
	return (f.Problem == "" || f.Problem == r.Problem) && (f.Batch == "" || f.Batch == r.Batch)
}

// Store persists records.
type Store interface {
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns matching records, newest first.
	List(ctx context.Context, f Filter) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
