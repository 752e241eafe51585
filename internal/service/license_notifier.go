package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
)

// DefaultLicenseNotifyCron 每天 07:00 刷新到期提醒
const DefaultLicenseNotifyCron = "0 7 * * *"

const licenseNotifyJob = "license_notify"

// LicenseNotifier 按 cron 表达式定时刷新许可证到期提醒缓存
type LicenseNotifier struct {
	licenses LicenseService
	spec     string
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	warmup sync.WaitGroup
}

// NewLicenseNotifier 创建定时任务；spec 为空时使用 DefaultLicenseNotifyCron
func NewLicenseNotifier(licenses LicenseService, spec string, m *metrics.Metrics, logger *zap.Logger) *LicenseNotifier {
	if spec == "" {
		spec = DefaultLicenseNotifyCron
	}
	return &LicenseNotifier{
		licenses: licenses,
		spec:     spec,
		timeout:  time.Minute,
		metrics:  m,
		logger:   logger,
	}
}

// Start 启动调度并立即执行一次预热；重复调用无副作用
func (n *LicenseNotifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(n.spec, n.RunOnce); err != nil {
		return fmt.Errorf("无效的 cron 表达式 %q: %w", n.spec, err)
	}
	n.cron = c
	c.Start()

	n.logger.Info("许可证提醒定时任务已启动", zap.String("cron", n.spec))
	n.warmup.Add(1)
	go func() {
		defer n.warmup.Done()
		n.RunOnce()
	}()
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (n *LicenseNotifier) Stop() {
	n.mu.Lock()
	c := n.cron
	n.cron = nil
	n.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	n.warmup.Wait()
	n.logger.Info("许可证提醒定时任务已停止")
}

// RunOnce 执行一次提醒刷新
func (n *LicenseNotifier) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	resp, err := n.licenses.RefreshNotifications(ctx)
	n.metrics.ObserveSchedulerRun(licenseNotifyJob, err)
	if err != nil {
		n.logger.Error("刷新许可证到期提醒失败", zap.Error(err))
		return
	}
	n.logger.Info("许可证到期提醒已刷新", zap.Int("count", resp.Count))
}
