// Package scheduler runs the periodic device tasks. Each task gets its own
// ticker goroutine; tasks are expected to return quickly and never block on
// capture or network I/O — blocking work is handed off to dedicated workers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task 周期任务
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context)
}

// Scheduler 协作式周期调度器
type Scheduler struct {
	tasks  []Task
	logger *zap.Logger
}

// New 创建调度器
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a periodic task. Must be called before Run.
func (s *Scheduler) Add(name string, interval time.Duration, fn func(ctx context.Context)) {
	s.tasks = append(s.tasks, Task{Name: name, Interval: interval, Fn: fn})
}

// Run starts every task and blocks until the context is canceled and all
// tickers have stopped.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, task := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.logger.Debug("task started",
				zap.String("task", t.Name),
				zap.Duration("interval", t.Interval),
			)
			ticker := time.NewTicker(t.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					t.Fn(ctx)
				}
			}
		}(task)
	}
	wg.Wait()
}
