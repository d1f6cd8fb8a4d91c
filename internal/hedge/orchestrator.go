package hedge

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var orchestratorLog = logrus.WithField("component", "orchestrator")

// RunControl 启停开关，由调用方持有并显式传入
type RunControl struct {
	running atomic.Bool
}

func NewRunControl(running bool) *RunControl {
	rc := &RunControl{}
	rc.running.Store(running)
	return rc
}

func (rc *RunControl) Start() {
	rc.running.Store(true)
}

func (rc *RunControl) Stop() {
	rc.running.Store(false)
}

func (rc *RunControl) Running() bool {
	return rc.running.Load()
}

// Orchestrator 每次调用按配置顺序依次处理所有池子（串行，不并发）
type Orchestrator struct {
	control *RunControl
	engine  *Engine
	pools   []*Pool
	obs     Observer
}

func NewOrchestrator(control *RunControl, engine *Engine, pools []*Pool) *Orchestrator {
	obs := engine.observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Orchestrator{
		control: control,
		engine:  engine,
		pools:   pools,
		obs:     obs,
	}
}

// Control 返回启停开关
func (o *Orchestrator) Control() *RunControl {
	return o.control
}

// Status 所有池子的当前视图（按配置顺序）
func (o *Orchestrator) Status() []PoolStatus {
	out := make([]PoolStatus, 0, len(o.pools))
	for _, p := range o.pools {
		out = append(out, p.Context.Status())
	}
	return out
}

// RunOnce 执行一轮。未启动时直接返回。
// 某个池子出错会记录日志并继续处理下一个池子，所有错误合并后返回。
func (o *Orchestrator) RunOnce(ctx context.Context) ([]CycleResult, error) {
	if !o.control.Running() {
		orchestratorLog.Info("未开启")
		return nil, nil
	}

	runID := uuid.NewString()
	log := orchestratorLog.WithField("run", runID)
	log.Infof("==========轮询开始========== pools=%d", len(o.pools))
	started := time.Now()
	defer func() { o.obs.ObservePass(time.Since(started)) }()

	results := make([]CycleResult, 0, len(o.pools))
	var errs []error
	for _, pool := range o.pools {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := o.engine.RunPool(ctx, pool)
		results = append(results, res)
		if err != nil {
			log.WithField("pool", pool.Context.Name()).Errorf("处理池子失败: %v", err)
			errs = append(errs, err)
			continue
		}
		log.WithField("pool", pool.Context.Name()).Infof("本轮结果: %s", res.Outcome())
	}
	return results, errors.Join(errs...)
}
