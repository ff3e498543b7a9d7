package chain

import (
	"sync"
	"time"

	"github.com/near/lake-flows-into-sql/retry"
	"github.com/near/lake-flows-into-sql/storage"
)

const testBase = time.Millisecond

// retryLog records the backoff delays announced by a retry executor.
type retryLog struct {
	mu     sync.Mutex
	delays map[string][]time.Duration
}

func (r *retryLog) hook(name string, _ int, next time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delays == nil {
		r.delays = map[string][]time.Duration{}
	}
	r.delays[name] = append(r.delays[name], next)
}

func (r *retryLog) delaysFor(name string) []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays[name]...)
}

func newMemStore(attempts int, rl *retryLog) (*storage.Store, *storage.MemStorage) {
	var opts []retry.Option
	if rl != nil {
		opts = append(opts, retry.WithHook(rl.hook))
	}
	exec := retry.NewExecutor(retry.Config{Base: testBase, Max: 8 * testBase, Attempts: attempts}, opts...)
	mem := storage.NewMemStorage()
	return storage.NewStore(mem, exec, 2), mem
}
