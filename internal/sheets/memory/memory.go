package memory

import (
	"context"
	"sync"

	"tesoreria/internal/report"
	ports "tesoreria/internal/sheets"
)

// Publisher keeps published grids in memory. It backs worker tests and
// local runs without Google credentials.
type Publisher struct {
	mu    sync.Mutex
	grids map[gridKey][]report.Sheet
}

type gridKey struct {
	owner string
	year  string
}

var _ ports.ReportPublisher = (*Publisher)(nil)

func New() *Publisher {
	return &Publisher{grids: make(map[gridKey][]report.Sheet)}
}

// Publish replaces the stored grids for the given owner and year.
func (p *Publisher) Publish(_ context.Context, owner, year string, grids []report.Sheet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := make([]report.Sheet, len(grids))
	copy(copied, grids)
	p.grids[gridKey{owner: owner, year: year}] = copied
	return nil
}

// Published returns the last grids published for the given owner and year.
func (p *Publisher) Published(owner, year string) []report.Sheet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grids[gridKey{owner: owner, year: year}]
}
