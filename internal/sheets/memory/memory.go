package memory

import (
	"context"
	"fmt"
	"sync"

	"famfin/internal/core"
	"famfin/internal/sheets"
)

var _ sheets.SnapshotExporter = (*Exporter)(nil)

// Exporter keeps exported rows in memory. It stands in for the Google
// exporter when no spreadsheet is configured.
type Exporter struct {
	mu      sync.Mutex
	rows    [][]any
	ids     []int64
	failure error
}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportSnapshot(_ context.Context, s core.AgencySnapshot) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failure != nil {
		err := e.failure
		e.failure = nil
		return "", err
	}
	e.rows = append(e.rows, sheets.SnapshotRow(s))
	e.ids = append(e.ids, s.ID)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// FailNext makes the next export return err.
func (e *Exporter) FailNext(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = err
}

// Rows returns a copy of every exported row.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows))
	for i, r := range e.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// SnapshotIDs lists the exported snapshot ids in export order.
func (e *Exporter) SnapshotIDs() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int64(nil), e.ids...)
}
