package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/chain"
	"github.com/betbot/poolhedge/internal/control"
	"github.com/betbot/poolhedge/internal/exchange"
	"github.com/betbot/poolhedge/internal/hedge"
	"github.com/betbot/poolhedge/internal/journal"
	"github.com/betbot/poolhedge/internal/metrics"
	"github.com/betbot/poolhedge/internal/scheduler"
	"github.com/betbot/poolhedge/pkg/config"
)

var log = logrus.WithField("component", "app")

// poolSource 交易所价格 + 链上读数
type poolSource struct {
	*exchange.PriceSource
	*chain.PoolReader
}

// App 装配好的对冲进程
type App struct {
	cfg          *config.Config
	closers      []func() error
	Orchestrator *hedge.Orchestrator
	Scheduler    *scheduler.Scheduler
	Metrics      *metrics.Metrics
	Journal      *journal.Journal // journal.enabled=false 时为 nil
	Control      *control.Server
}

// New 连接 RPC 并装配所有组件
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	eth, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	a, err := Assemble(cfg, eth)
	if err != nil {
		eth.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { eth.Close(); return nil })
	return a, nil
}

// Assemble 使用给定的链上后端装配组件
func Assemble(cfg *config.Config, backend chain.ContractBackend) (*App, error) {
	ex, err := exchange.NewClient(exchange.Config{
		BaseURL:   cfg.Exchange.BaseURL,
		AccessKey: cfg.Exchange.AccessKey,
		SecretKey: cfg.Exchange.SecretKey,
		AccountID: cfg.Exchange.AccountID,
		Timeout:   cfg.Exchange.Timeout,
		RateLimit: cfg.Exchange.RateLimit,
	})
	if err != nil {
		return nil, err
	}

	var trader hedge.TradingClient = ex
	if cfg.DryRun {
		log.Warnf("dry_run 模式：订单不会发送到交易所 (fill_ratio=%s)", cfg.FillRatio())
		trader = exchange.NewPaperClient(ex, cfg.FillRatio())
	}

	pools, err := buildPools(cfg, backend, ex)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, Metrics: metrics.New()}
	opts := []hedge.EngineOption{hedge.WithObserver(a.Metrics)}
	if cfg.Journal.Enabled {
		j, err := journal.Open(journal.OpenOptions{Path: cfg.Journal.Path})
		if err != nil {
			return nil, err
		}
		a.Journal = j
		a.closers = append(a.closers, j.Close)
		opts = append(opts, hedge.WithRecorder(j))
	}

	engine := hedge.NewEngine(hedge.NewReconciler(trader, cfg.SettleDelay), opts...)
	a.Orchestrator = hedge.NewOrchestrator(hedge.NewRunControl(cfg.StartOnBoot), engine, pools)
	a.Scheduler = scheduler.New(a.Orchestrator, cfg.PollInterval)

	ctrlCfg := control.Config{
		Engine:  a.Orchestrator,
		Trigger: a.Scheduler,
		Metrics: a.Metrics.Handler(),
		DryRun:  cfg.DryRun,
	}
	if a.Journal != nil {
		ctrlCfg.History = a.Journal
	}
	a.Control, err = control.New(ctrlCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func buildPools(cfg *config.Config, backend chain.ContractBackend, prices exchange.PriceClient) ([]*hedge.Pool, error) {
	pools := make([]*hedge.Pool, 0, len(cfg.Pools))
	for _, pc := range cfg.Pools {
		baseTh, quoteTh, err := pc.Thresholds()
		if err != nil {
			return nil, err
		}
		pctx, err := hedge.NewPoolContext(hedge.PoolSpec{
			Name:           pc.Name,
			Symbol:         pc.Symbol,
			BaseDecimals:   pc.Decimals(),
			BaseThreshold:  baseTh,
			QuoteThreshold: quoteTh,
		})
		if err != nil {
			return nil, err
		}
		addrs := chain.PoolAddresses{
			Pool:        common.HexToAddress(pc.PoolAddress),
			ShareToken:  common.HexToAddress(pc.ShareToken),
			Participant: common.HexToAddress(pc.Participant),
			QuoteToken:  common.HexToAddress(pc.QuoteToken),
		}
		if pc.BaseToken != "" {
			addrs.BaseToken = common.HexToAddress(pc.BaseToken)
		}
		reader, err := chain.NewPoolReader(backend, addrs)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pc.Name, err)
		}
		pools = append(pools, &hedge.Pool{
			Context: pctx,
			Source:  poolSource{exchange.NewPriceSource(prices, pc.Symbol), reader},
		})
		log.Infof("池子 %s symbol=%s base_decimals=%d 阈值 [%s, %s]", pc.Name, pc.Symbol, pc.Decimals(), baseTh, quoteTh)
	}
	return pools, nil
}

// Run 启动调度器、控制面和可选的 metrics 端口，阻塞直到 ctx 结束
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.cfg.Metrics.Listen != "" {
		if _, err := a.Metrics.StartAsync(ctx, a.cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics listen: %w", err)
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	if a.cfg.Control.Listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Control.ListenAndServe(ctx, a.cfg.Control.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
				cancel()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Scheduler.Run(ctx)
	}()

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// Close 释放 journal 和 RPC 连接
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
