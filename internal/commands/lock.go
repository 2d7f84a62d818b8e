package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/server"
)

// LockFile is the workspace lock held while a batch is resolved and stored.
const LockFile = ".bankfeed.lock"

const lockRetry = 50 * time.Millisecond

// lockedProcessor runs batches one at a time across every bankfeed process
// sharing the workspace. mu covers goroutines of this process, since a flock
// already held by the same handle is granted again without waiting.
type lockedProcessor struct {
	mu   sync.Mutex
	lock *flock.Flock
	next server.Processor
}

func newLockedProcessor(path string, next server.Processor) *lockedProcessor {
	return &lockedProcessor{lock: flock.New(path), next: next}
}

// Process waits for the workspace lock, then hands the batch on.
func (p *lockedProcessor) Process(ctx context.Context, source string, rows []model.RawRow, opts batch.Options) (*batch.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("locking workspace: %w", err)
	}
	if !ok {
		return nil, errors.New("locking workspace: lock not acquired")
	}
	defer p.lock.Unlock()

	return p.next.Process(ctx, source, rows, opts)
}
