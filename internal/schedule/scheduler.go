package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/model"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	RemoveJob(name string)
	Start(ctx context.Context)
	Stop()
}

type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	entryID, err := c.cron.AddFunc(spec, c.wrap(job, spec))
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.mu.Lock()
	if old, ok := c.entries[name]; ok {
		c.cron.Remove(old)
	}
	c.entries[name] = entryID
	c.mu.Unlock()
	logger.Info("job scheduled")
	return nil
}

// RemoveJob unregisters a job by name; unknown names are a no-op so callers
// can re-arm unconditionally.
func (c *CronScheduler) RemoveJob(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entryID, ok := c.entries[name]; ok {
		c.cron.Remove(entryID)
		delete(c.entries, name)
	}
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// wrap guards each job with a per-job single-flight flag, timing, and a panic
// recover so one bad tick can never take down the scheduling loop.
func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logutil.GetLogger(context.Background()).With(
				zap.String("job", job.Name()),
				zap.String("spec", spec),
			).Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("job panicked", zap.Any("panic", r))
			}
		}()
		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}

// BuildCronSpec derives the cron expression for a schedule config. daily and
// weekly fire only when wall-clock time matches; custom fires on a fixed
// minute interval.
func BuildCronSpec(cfg *model.ScheduleConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	switch cfg.Interval {
	case model.ScheduleIntervalHourly:
		return fmt.Sprintf("%d * * * *", cfg.Minute), nil
	case model.ScheduleIntervalDaily:
		return fmt.Sprintf("%d %d * * *", cfg.Minute, cfg.Hour), nil
	case model.ScheduleIntervalWeekly:
		return fmt.Sprintf("%d %d * * %d", cfg.Minute, cfg.Hour, cfg.DayOfWeek), nil
	case model.ScheduleIntervalCustom:
		return fmt.Sprintf("@every %dm", cfg.CustomMinutes), nil
	default:
		return "", fmt.Errorf("unknown interval: %q", cfg.Interval)
	}
}
