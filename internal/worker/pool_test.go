package worker_test

import (
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallgrade/recallgrade/internal/worker"
)

func TestPool_DeliversEveryResult(t *testing.T) {
	p := worker.NewPool[int](3, 10)

	for i := 0; i < 10; i++ {
		n := i
		p.Submit(fmt.Sprintf("job-%d", n), func() int { return n * n })
	}
	p.Close()

	var ids []string
	sum := 0
	for r := range p.Results() {
		ids = append(ids, r.JobID)
		sum += r.Output
	}

	require.Len(t, ids, 10)
	sort.Strings(ids)
	assert.Equal(t, "job-0", ids[0])
	assert.Equal(t, 285, sum)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 2
	p := worker.NewPool[struct{}](workers, 8)

	var running, peak int32
	for i := 0; i < 8; i++ {
		p.Submit("j", func() struct{} {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}
		})
	}
	p.Close()
	for range p.Results() {
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers))
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	p := worker.NewPool[int](0, 1)
	p.Close()
	p.Close()

	_, ok := <-p.Results()
	assert.False(t, ok)
}
