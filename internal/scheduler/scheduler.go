package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/hedge"
	"github.com/betbot/poolhedge/pkg/sigchan"
)

var log = logrus.WithField("component", "scheduler")

// Runner 执行一轮
type Runner interface {
	RunOnce(ctx context.Context) ([]hedge.CycleResult, error)
}

// Scheduler 定时 + 手动触发执行 Runner。所有轮次都在同一个 goroutine 里串行执行，不会重叠。
type Scheduler struct {
	runner   Runner
	interval time.Duration
	trigger  *sigchan.Chan
	passes   atomic.Int64
}

func New(runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		trigger:  sigchan.New(1),
	}
}

// Trigger 请求尽快执行一轮；已有待执行的请求时合并，返回 false
func (s *Scheduler) Trigger() bool {
	return s.trigger.Emit()
}

// Passes 已完成的轮数
func (s *Scheduler) Passes() int64 {
	return s.passes.Load()
}

// Run 阻塞直到 ctx 结束。启动后立即执行一轮，之后每 interval 一轮。
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Infof("调度启动 interval=%s", s.interval)
	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("调度退出")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger.C():
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer s.passes.Add(1)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("本轮 panic: %v", r)
		}
	}()
	if _, err := s.runner.RunOnce(ctx); err != nil {
		log.Errorf("本轮存在失败: %v", err)
	}
}
