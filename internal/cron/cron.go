package cron

import (
	"context"
	"time"

	"fingate/config"
	"fingate/internal/ratelimit"
	"fingate/internal/service"

	"github.com/google/wire"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewCron)

// 單次 job 的上限，避免卡住的下游拖垮排程
const jobTimeout = 5 * time.Minute

type Cron struct {
	conf     *config.Configuration
	logger   *zap.Logger
	server   *cron.Cron
	worker   *service.DeliveryWorker
	touches  *service.KeyTouchBatcher
	limiter  *ratelimit.Limiter
	ctx      context.Context
	cancel   context.CancelFunc
	jobCount int
}

// NewCron .
func NewCron(
	conf *config.Configuration,
	logger *zap.Logger,
	worker *service.DeliveryWorker,
	touches *service.KeyTouchBatcher,
	limiter *ratelimit.Limiter,
) *Cron {
	server := cron.New(
		cron.WithSeconds(),
		// 上一輪還沒跑完就跳過，同一 process 內不重疊
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	ctx, cancel := context.WithCancel(context.Background())

	return &Cron{
		conf:    conf,
		logger:  logger,
		server:  server,
		worker:  worker,
		touches: touches,
		limiter: limiter,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Cron) Run() error {
	if err := c.add("webhook-delivery", c.conf.Webhook.DeliverySpec, c.deliver); err != nil {
		return err
	}
	if err := c.add("api-key-touch", c.conf.Webhook.TouchSpec(), c.flushTouches); err != nil {
		return err
	}
	if err := c.add("rate-limit-sweep", c.conf.RateLimit.Sweep(), c.sweep); err != nil {
		return err
	}

	c.server.Start()
	c.logger.Info("cron started", zap.Int("jobs", c.jobCount))
	return nil
}

// add spec 為空代表不排程（僅 delivery 允許關閉，交給 deliver-webhooks 指令）
func (c *Cron) add(name, spec string, job func()) error {
	if spec == "" {
		return nil
	}
	if _, err := c.server.AddFunc(spec, job); err != nil {
		c.logger.Error("invalid cron spec", zap.String("job", name), zap.String("spec", spec), zap.Error(err))
		return err
	}
	c.jobCount++
	return nil
}

func (c *Cron) deliver() {
	ctx, cancel := context.WithTimeout(c.ctx, jobTimeout)
	defer cancel()

	summary, err := c.worker.RunOnce(ctx)
	if err != nil {
		c.logger.Error("webhook delivery run failed", zap.Error(err))
		return
	}
	if summary.Claimed > 0 {
		c.logger.Info("webhook delivery run",
			zap.Int("claimed", summary.Claimed),
			zap.Int("delivered", summary.Delivered),
			zap.Int("retrying", summary.Retrying),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("lost", summary.Lost),
		)
	}
}

func (c *Cron) flushTouches() {
	ctx, cancel := context.WithTimeout(c.ctx, jobTimeout)
	defer cancel()

	if err := c.touches.Flush(ctx); err != nil {
		c.logger.Warn("api key touch flush failed", zap.Error(err))
	}
}

func (c *Cron) sweep() {
	c.limiter.Sweep()
}

// Stop 等待執行中的 job 結束，最後再寫回一次 lastUsedAt
func (c *Cron) Stop(ctx context.Context) error {
	stopped := c.server.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		c.cancel()
	}
	c.cancel()

	if err := c.touches.Flush(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("final api key touch flush failed", zap.Error(err))
		return err
	}
	return nil
}
