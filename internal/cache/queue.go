package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// task 是调度队列中的一项工作；barrier=true 表示独占执行。
type task struct {
	run     func()
	barrier bool
}

// taskQueue 按提交顺序派发任务：普通任务在独立 goroutine 中并发执行，
// 屏障任务先等待所有在途读取结束，再在派发 goroutine 上单独执行，
// 执行完毕前后续任务不会被派发。
type taskQueue struct {
	mu      sync.Mutex
	pending []task
	closed  bool
	wake    chan struct{}

	readers sync.WaitGroup
	limit   *semaphore.Weighted
	done    chan struct{}
}

func newTaskQueue(maxReads int64) *taskQueue {
	q := &taskQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	if maxReads > 0 {
		q.limit = semaphore.NewWeighted(maxReads)
	}
	go q.loop()
	return q
}

// submit 追加任务并立即返回；队列关闭后返回 false。
func (q *taskQueue) submit(t task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, t)
	q.mu.Unlock()

	q.notify()
	return true
}

// close 停止接收新任务，并在已提交任务全部完成后返回。
func (q *taskQueue) close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *taskQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *taskQueue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		if len(batch) == 0 {
			if closed {
				q.readers.Wait()
				return
			}
			<-q.wake
			continue
		}

		for _, t := range batch {
			q.dispatch(t)
		}
	}
}

func (q *taskQueue) dispatch(t task) {
	if t.barrier {
		q.readers.Wait()
		t.run()
		return
	}

	if q.limit != nil {
		// Acquire 只会因 ctx 取消而失败，这里使用永不取消的 ctx。
		_ = q.limit.Acquire(context.Background(), 1)
	}
	q.readers.Add(1)
	go func() {
		defer q.readers.Done()
		if q.limit != nil {
			defer q.limit.Release(1)
		}
		t.run()
	}()
}
