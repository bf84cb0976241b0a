package resolve

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/observability"
)

// lookup is the single registry query for one name.
type lookup struct {
	done chan struct{}
	pkg  *integrations.Package
	err  error
}

// lookups issues at most one query per key and bounds how many run at
// once.
type lookups struct {
	ctx context.Context
	reg Registry
	sem *semaphore.Weighted

	mu      sync.Mutex
	entries map[string]*lookup
	wg      sync.WaitGroup
}

func newLookups(ctx context.Context, reg Registry, workers int) *lookups {
	return &lookups{
		ctx:     ctx,
		reg:     reg,
		sem:     semaphore.NewWeighted(int64(workers)),
		entries: make(map[string]*lookup),
	}
}

// start claims key and queries name in the background unless another
// caller already did.
func (l *lookups) start(key, name, declaredVersion string) *lookup {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lk, ok := l.entries[key]; ok {
		return lk
	}
	lk := &lookup{done: make(chan struct{})}
	l.entries[key] = lk

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(lk.done)
		if err := l.sem.Acquire(l.ctx, 1); err != nil {
			lk.err = err
			return
		}
		defer l.sem.Release(1)

		began := time.Now()
		lk.pkg, lk.err = l.reg.Resolve(l.ctx, name, declaredVersion)
		observability.Resolve().OnLookup(l.ctx, l.reg.Name(), name, Classify(lk.err).String(), time.Since(began))
	}()
	return lk
}

// wait returns the answer for key, starting the query if needed.
func (l *lookups) wait(key, name, declaredVersion string) (*integrations.Package, error) {
	lk := l.start(key, name, declaredVersion)
	select {
	case <-lk.done:
		return lk.pkg, lk.err
	case <-l.ctx.Done():
		return nil, l.ctx.Err()
	}
}

// close blocks until every started query has returned.
func (l *lookups) close() {
	l.wg.Wait()
}
