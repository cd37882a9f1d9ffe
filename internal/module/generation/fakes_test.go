package generation

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/genius/server/internal/module/billing"
)

// fakeProvider returns a canned result or error and counts calls.
type fakeProvider struct {
	mu     sync.Mutex
	name   string
	result json.RawMessage
	err    error
	block  bool
	calls  int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(ctx context.Context, _ string) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls++
	block, result, err := p.block, p.result, p.err
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, newProviderError(p.name, KindOther, "request failed", ctx.Err())
	}
	return result, err
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeQuota is an in-memory QuotaChecker.
type fakeQuota struct {
	mu         sync.Mutex
	decision   billing.Decision
	checkErr   error
	checks     int
	increments int
}

func (q *fakeQuota) Check(context.Context, string) (*billing.Decision, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.checks++
	if q.checkErr != nil {
		return nil, q.checkErr
	}
	d := q.decision
	return &d, nil
}

func (q *fakeQuota) Increment(context.Context, string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.increments++
	return q.increments, nil
}
