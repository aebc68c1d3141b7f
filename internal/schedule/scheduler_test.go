package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subeero/mangapipe/internal/model"
)

func TestBuildCronSpec(t *testing.T) {
	cases := []struct {
		name string
		cfg  model.ScheduleConfig
		want string
	}{
		{"hourly", model.ScheduleConfig{Interval: model.ScheduleIntervalHourly, Minute: 15}, "15 * * * *"},
		{"daily", model.ScheduleConfig{Interval: model.ScheduleIntervalDaily, Hour: 3, Minute: 0}, "0 3 * * *"},
		{"weekly", model.ScheduleConfig{Interval: model.ScheduleIntervalWeekly, Hour: 6, Minute: 30, DayOfWeek: 1}, "30 6 * * 1"},
		{"custom", model.ScheduleConfig{Interval: model.ScheduleIntervalCustom, CustomMinutes: 90}, "@every 90m"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := BuildCronSpec(&tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.want, spec)
		})
	}
}

func TestBuildCronSpec_Invalid(t *testing.T) {
	_, err := BuildCronSpec(&model.ScheduleConfig{Interval: "fortnightly"})
	require.Error(t, err)
	_, err = BuildCronSpec(&model.ScheduleConfig{Interval: model.ScheduleIntervalDaily, Hour: 25})
	require.Error(t, err)
	_, err = BuildCronSpec(&model.ScheduleConfig{Interval: model.ScheduleIntervalCustom, CustomMinutes: 0})
	require.Error(t, err)
}

func TestBuildCronSpec_AcceptedByScheduler(t *testing.T) {
	s := NewCronScheduler()
	for _, cfg := range []model.ScheduleConfig{
		{Interval: model.ScheduleIntervalHourly, Minute: 5},
		{Interval: model.ScheduleIntervalWeekly, Hour: 4, Minute: 30, DayOfWeek: 0},
		{Interval: model.ScheduleIntervalCustom, CustomMinutes: 10},
	} {
		spec, err := BuildCronSpec(&cfg)
		require.NoError(t, err)
		require.NoError(t, s.AddJob(&noopJob{name: "probe_" + cfg.Interval}, spec))
	}
}

type noopJob struct {
	name string
	runs atomic.Int32
}

func (j *noopJob) Name() string { return j.name }

func (j *noopJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestAddJob_ReplacesSameName(t *testing.T) {
	s := NewCronScheduler()
	first := &noopJob{name: "dup"}
	second := &noopJob{name: "dup"}
	require.NoError(t, s.AddJob(first, "0 * * * *"))
	require.NoError(t, s.AddJob(second, "30 * * * *"))
	require.Len(t, s.cron.Entries(), 1)
}

func TestRemoveJob_UnknownIsNoop(t *testing.T) {
	s := NewCronScheduler()
	s.RemoveJob("never-added")
	require.NoError(t, s.AddJob(&noopJob{name: "real"}, "0 * * * *"))
	s.RemoveJob("real")
	require.Empty(t, s.cron.Entries())
}

func TestWrap_SkipsOverlappingRuns(t *testing.T) {
	s := NewCronScheduler()
	blocker := make(chan struct{})
	job := &blockingJob{release: blocker}
	fn := s.wrap(job, "@every 1m")

	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.started.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Second tick while the first still runs must be dropped.
	fn()
	require.Equal(t, int32(1), job.started.Load())

	close(blocker)
	<-done
}

func TestWrap_RecoversPanic(t *testing.T) {
	s := NewCronScheduler()
	fn := s.wrap(&panicJob{}, "@every 1m")
	require.NotPanics(t, fn)
}

type blockingJob struct {
	started atomic.Int32
	release chan struct{}
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Run(ctx context.Context) error {
	j.started.Add(1)
	<-j.release
	return nil
}

type panicJob struct{}

func (j *panicJob) Name() string { return "panics" }

func (j *panicJob) Run(ctx context.Context) error {
	panic("boom")
}
