package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/store"
)

// Sink receives every finished run
type Sink interface {
	Record(ctx context.Context, result Result) error
}

// BeginSink is implemented by sinks which track runs in progress
type BeginSink interface {
	Sink
	Begin(ctx context.Context, result Result) error
}

// WriteSink writes one JSON document per finished run
type WriteSink struct {
	mx sync.Mutex
	w  io.Writer
}

func NewWriteSink(w io.Writer) *WriteSink {
	if w == nil {
		w = os.Stdout
	}
	return &WriteSink{w: w}
}

type runDocument struct {
	Job     string          `json:"job"`
	UUID    string          `json:"uuid"`
	Kind    string          `json:"kind"`
	Target  string          `json:"target"`
	Started time.Time       `json:"started"`
	Stopped time.Time       `json:"stopped"`
	Results json.RawMessage `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (s *WriteSink) Record(_ context.Context, result Result) error {
	doc := runDocument{
		Job:     result.JobName,
		UUID:    result.UUID,
		Kind:    result.Kind,
		Target:  result.Target,
		Started: result.Started,
		Stopped: result.Stopped,
	}
	if result.Err != nil {
		doc.Error = result.Err.Error()
	} else {
		doc.Results = result.Output
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	return json.NewEncoder(s.w).Encode(doc)
}

// StoreSink keeps the history of runs in the sqlite store
type StoreSink struct {
	db *sql.DB
}

func NewStoreSink(db *sql.DB) StoreSink {
	return StoreSink{db: db}
}

func (s StoreSink) Begin(ctx context.Context, result Result) error {
	return store.Start(ctx, s.db, runOf(result))
}

func (s StoreSink) Record(ctx context.Context, result Result) error {
	// runs which failed to start were never begun
	if err := store.Start(ctx, s.db, runOf(result)); err != nil {
		return fmt.Errorf("recording run %s: %w", result.UUID, err)
	}
	var err error
	if result.Err != nil {
		err = store.FinishErr(ctx, s.db, result.UUID, result.Err.Error())
	} else {
		err = store.FinishOK(ctx, s.db, result.UUID, string(result.Output))
	}
	if err != nil {
		return fmt.Errorf("recording run %s: %w", result.UUID, err)
	}
	return nil
}

func runOf(result Result) store.Run {
	return store.Run{
		UUID:   result.UUID,
		Job:    result.JobName,
		Kind:   result.Kind,
		Target: result.Target,
	}
}
