package services

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sentinel-planner/internal/planner/engine"
)

type MockKafkaProducer struct{ mock.Mock }

func (m *MockKafkaProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}
func (m *MockKafkaProducer) Close() error { args := m.Called(); return args.Error(0) }
func (m *MockKafkaProducer) Stats() kafka.WriterStats {
	args := m.Called()
	if val, ok := args.Get(0).(kafka.WriterStats); ok {
		return val
	}
	return kafka.WriterStats{}
}

func TestCronExpressionFor(t *testing.T) {
	cases := []struct {
		name  string
		sched engine.ScheduleDescriptor
		want  string
	}{
		{
			"daily at 09:00",
			engine.ScheduleDescriptor{Frequency: engine.FrequencyDaily, Time: "09:00"},
			"0 9 * * *",
		},
		{
			"weekly tuesday at 14:30",
			engine.ScheduleDescriptor{Frequency: engine.FrequencyWeekly, Time: "14:30", DaysOfWeek: []int{1}},
			"30 14 * * 2",
		},
		{
			"weekly sunday wraps to cron 0",
			engine.ScheduleDescriptor{Frequency: engine.FrequencyWeekly, Time: "09:00", DaysOfWeek: []int{6}},
			"0 9 * * 0",
		},
		{
			"weekly with no days defaults to monday",
			engine.ScheduleDescriptor{Frequency: engine.FrequencyWeekly, Time: "09:00"},
			"0 9 * * 1",
		},
		{
			"monthly at 08:15",
			engine.ScheduleDescriptor{Frequency: engine.FrequencyMonthly, Time: "08:15"},
			"15 8 1 * *",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CronExpressionFor(&tc.sched))
		})
	}
}

func TestScheduleDetectedTask(t *testing.T) {
	mockProducer := new(MockKafkaProducer)
	svc, err := NewSchedulerService(context.Background(), mockProducer)
	require.NoError(t, err)
	defer svc.Stop()

	workflow := engine.NewStepGenerator().Generate("Weekly KPI Report", "", map[string]interface{}{"url": "https://x/kpi"})

	detection := &engine.DetectionResult{
		TaskName: "KPI report",
		Scheduling: &engine.ScheduleDescriptor{
			ScheduleType: engine.ScheduleTypeRecurring,
			Frequency:    engine.FrequencyWeekly,
			DaysOfWeek:   []int{4},
			Time:         "09:00",
			NextRun:      time.Now().AddDate(0, 0, 1),
			Enabled:      true,
		},
	}
	require.NoError(t, svc.ScheduleDetectedTask(detection, workflow))
	assert.Len(t, svc.Scheduler.Jobs(), 1)

	// Re-scheduling the same task replaces the previous job.
	require.NoError(t, svc.ScheduleDetectedTask(detection, workflow))
	assert.Len(t, svc.Scheduler.Jobs(), 1)
}

func TestScheduleDetectedTask_OneTime(t *testing.T) {
	mockProducer := new(MockKafkaProducer)
	svc, err := NewSchedulerService(context.Background(), mockProducer)
	require.NoError(t, err)
	defer svc.Stop()

	detection := &engine.DetectionResult{
		TaskName: "report",
		Scheduling: &engine.ScheduleDescriptor{
			ScheduleType: engine.ScheduleTypeOnce,
			Time:         "09:00",
			NextRun:      time.Now().Add(1 * time.Hour),
			Enabled:      true,
		},
	}
	require.NoError(t, svc.ScheduleDetectedTask(detection, nil))
	assert.Len(t, svc.Scheduler.Jobs(), 1)
}

func TestScheduleDetectedTask_Rejections(t *testing.T) {
	mockProducer := new(MockKafkaProducer)
	svc, err := NewSchedulerService(context.Background(), mockProducer)
	require.NoError(t, err)
	defer svc.Stop()

	err = svc.ScheduleDetectedTask(&engine.DetectionResult{TaskName: "x"}, nil)
	assert.Error(t, err, "no scheduling information")

	err = svc.ScheduleDetectedTask(&engine.DetectionResult{
		TaskName: "x",
		Scheduling: &engine.ScheduleDescriptor{
			ScheduleType: engine.ScheduleTypeOnce,
			Time:         "09:00",
			NextRun:      time.Now().Add(-1 * time.Hour),
		},
	}, nil)
	assert.Error(t, err, "one-time next_run in the past")
}
