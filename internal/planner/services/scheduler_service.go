package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/segmentio/kafka-go"

	"sentinel-planner/internal/planner/engine"
	"sentinel-planner/internal/planner/events"
)

// MessageWriter is the slice of *kafka.Writer the services need; an interface
// so tests can mock the producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// SchedulerService arms gocron jobs for detected tasks that carry a
// ScheduleDescriptor and publishes the planned workflow to Kafka when a job
// fires. It never executes workflow steps itself.
type SchedulerService struct {
	Scheduler  gocron.Scheduler
	Producer   MessageWriter
	appContext context.Context
}

func NewSchedulerService(ctx context.Context, producer MessageWriter) (*SchedulerService, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &SchedulerService{Scheduler: s, Producer: producer, appContext: ctx}, nil
}

func (s *SchedulerService) Start() {
	log.Println("SchedulerService starting...")
	s.Scheduler.Start()
}

func (s *SchedulerService) Stop() {
	log.Println("SchedulerService stopping...")
	if err := s.Scheduler.Shutdown(); err != nil {
		log.Printf("Error shutting down gocron scheduler: %v", err)
	} else {
		log.Println("Gocron scheduler shut down successfully.")
	}
}

// ScheduleDetectedTask arms a job for a detected task. One-time schedules run
// once at next_run; recurring schedules run on a cron cadence derived from the
// descriptor. Re-scheduling the same task name replaces the previous job.
func (s *SchedulerService) ScheduleDetectedTask(detection *engine.DetectionResult, workflow *engine.Workflow) error {
	if detection == nil || detection.Scheduling == nil {
		return fmt.Errorf("detection has no scheduling information, cannot schedule")
	}
	sched := detection.Scheduling

	taskTag := "task:" + detection.TaskName
	s.Scheduler.RemoveByTags(taskTag)

	var jobDef gocron.JobDefinition
	if sched.ScheduleType == engine.ScheduleTypeOnce {
		if sched.NextRun.Before(time.Now()) {
			return fmt.Errorf("task %q next_run %v is in the past, cannot schedule", detection.TaskName, sched.NextRun)
		}
		jobDef = gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(sched.NextRun.UTC()))
	} else {
		jobDef = gocron.CronJob(CronExpressionFor(sched), false)
	}

	payload := events.WorkflowDispatchPayload{
		TaskName:     detection.TaskName,
		TaskSource:   engine.TaskSourceScheduled,
		AutoApproved: detection.AutoApproved,
		Workflow:     workflow,
		ScheduledFor: sched.NextRun.Format(time.RFC3339),
	}

	job, err := s.Scheduler.NewJob(
		jobDef,
		gocron.NewTask(func(p events.WorkflowDispatchPayload) { s.dispatchWorkflow(p) }, payload),
		gocron.WithName("planned_"+detection.TaskName),
		gocron.WithTags("planned_task", taskTag),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task %q: %w", detection.TaskName, err)
	}

	nextRunTime, errNextRun := job.NextRun()
	logMessage := fmt.Sprintf("Scheduled task %q (%s). gocron Job ID: %s, Tags: %v",
		detection.TaskName, sched.ScheduleType, job.ID(), job.Tags())
	if errNextRun != nil {
		logMessage += fmt.Sprintf(", Next Run: (error: %v)", errNextRun)
	} else {
		logMessage += fmt.Sprintf(", Next Run: %s", nextRunTime.Format(time.RFC3339))
	}
	log.Println(logMessage)
	return nil
}

// dispatchWorkflow publishes the planned workflow for an external executor.
func (s *SchedulerService) dispatchWorkflow(payload events.WorkflowDispatchPayload) {
	log.Printf("Schedule fired for task %q", payload.TaskName)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshalling WorkflowDispatchPayload for task %q: %v", payload.TaskName, err)
		return
	}

	key := payload.TaskName
	if payload.Workflow != nil {
		key = payload.Workflow.WorkflowID
	}
	kafkaMsg := kafka.Message{Key: []byte(key), Value: payloadBytes}

	writeCtx, cancel := context.WithTimeout(s.appContext, 10*time.Second)
	defer cancel()
	if err := s.Producer.WriteMessages(writeCtx, kafkaMsg); err != nil {
		log.Printf("Error sending planned workflow for task %q to Kafka: %v", payload.TaskName, err)
		return
	}
	log.Printf("Planned workflow for task %q dispatched to Kafka topic %s", payload.TaskName, s.Producer.Stats().Topic)
}

// CronExpressionFor derives a standard cron expression from a recurring
// ScheduleDescriptor. Cron weekdays count Sunday=0 while the descriptor
// counts Monday=0.
func CronExpressionFor(sched *engine.ScheduleDescriptor) string {
	hour, minute := 9, 0
	if parts := strings.SplitN(sched.Time, ":", 2); len(parts) == 2 {
		if h, err := strconv.Atoi(parts[0]); err == nil {
			hour = h
		}
		if m, err := strconv.Atoi(parts[1]); err == nil {
			minute = m
		}
	}

	switch sched.Frequency {
	case engine.FrequencyWeekly:
		days := sched.DaysOfWeek
		if len(days) == 0 {
			days = []int{0}
		}
		cronDays := make([]string, len(days))
		for i, d := range days {
			cronDays[i] = strconv.Itoa((d + 1) % 7)
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(cronDays, ","))
	case engine.FrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour)
	default: // daily
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
}

// RefreshJobs logs the current job population; exposed through the admin
// endpoint.
func (s *SchedulerService) RefreshJobs() {
	currentJobs := s.Scheduler.Jobs()
	log.Printf("%d jobs currently scheduled.", len(currentJobs))
}
