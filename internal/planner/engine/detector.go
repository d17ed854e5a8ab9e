package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultScheduleTime = "09:00"

// suggestionMinFrequency is the observation count below which no task is
// suggested; suggestionCooldownDays suppresses suggestions for behaviors
// executed recently.
const (
	suggestionMinFrequency = 3
	suggestionCooldownDays = 7
)

// Detector parses natural-language commands into structured task information.
// It holds no mutable state; a single instance is safe for concurrent use.
type Detector struct {
	now func() time.Time
}

func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

// DetectFromChat parses one command string. It never fails: malformed or
// nonsensical input degrades to an empty task name with no schedule.
func (d *Detector) DetectFromChat(command string) DetectionResult {
	lowered := strings.ToLower(strings.TrimSpace(command))

	return DetectionResult{
		TaskName:     d.extractTaskName(command),
		TaskSource:   TaskSourceUserChat,
		Scheduling:   d.detectScheduling(lowered),
		IsRepetitive: containsAny(lowered, repetitiveKeywords),
		AutoApproved: containsAny(lowered, autoApproveKeywords),
		Command:      command,
	}
}

// extractTaskName strips scheduling and automation phrases from the command,
// applying the removal rules cumulatively in their listed order.
func (d *Detector) extractTaskName(command string) string {
	name := command
	for _, rule := range taskNameStripRules {
		name = rule.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name)
}

// detectScheduling matches frequency keywords against the lowered command and
// builds a ScheduleDescriptor, or returns nil when nothing matched.
func (d *Detector) detectScheduling(command string) *ScheduleDescriptor {
	timeStr := extractClockTime(command)

	var sched *ScheduleDescriptor
	switch {
	case dailyRe.MatchString(command):
		sched = &ScheduleDescriptor{
			ScheduleType: ScheduleTypeRecurring,
			Frequency:    FrequencyDaily,
		}
	case weeklyRe.MatchString(command):
		day := 0 // default Monday
		for _, entry := range weekdayTable {
			if strings.Contains(command, entry.name) {
				day = entry.day
				break
			}
		}
		sched = &ScheduleDescriptor{
			ScheduleType: ScheduleTypeRecurring,
			Frequency:    FrequencyWeekly,
			DaysOfWeek:   []int{day},
		}
	case monthlyRe.MatchString(command):
		sched = &ScheduleDescriptor{
			ScheduleType: ScheduleTypeRecurring,
			Frequency:    FrequencyMonthly,
		}
	case onceRe.MatchString(command):
		sched = &ScheduleDescriptor{ScheduleType: ScheduleTypeOnce}
	default:
		return nil
	}

	sched.Time = timeStr
	if sched.Time == "" {
		sched.Time = defaultScheduleTime
	}
	sched.NextRun = d.nextRun(sched)
	sched.Enabled = true
	return sched
}

// nextRun computes the first firing time. One-time schedules run today at the
// parsed time, or tomorrow if that moment has already passed. Recurring
// schedules use now + 1 day regardless of the chosen weekday or monthly
// anchor; the real cadence is the scheduler's concern.
func (d *Detector) nextRun(sched *ScheduleDescriptor) time.Time {
	now := d.now()
	if sched.ScheduleType == ScheduleTypeOnce {
		hour, minute := splitClock(sched.Time)
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if next.Before(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
	return now.AddDate(0, 0, 1)
}

// SuggestFromBehavior turns an observed behavior pattern into a task
// suggestion, or returns nil when the behavior is not frequent enough or was
// executed too recently. Suggestions always require approval.
func (d *Detector) SuggestFromBehavior(behaviorPattern string, frequency int, lastExecuted *time.Time) *BehaviorSuggestion {
	if frequency < suggestionMinFrequency {
		return nil
	}
	if lastExecuted != nil {
		daysSince := int(d.now().Sub(*lastExecuted).Hours() / 24)
		if daysSince < suggestionCooldownDays {
			return nil
		}
	}
	return &BehaviorSuggestion{
		TaskName:        "Automated " + behaviorPattern,
		TaskSource:      TaskSourceAISuggested,
		IsRepetitive:    true,
		AutoApproved:    false,
		BehaviorPattern: behaviorPattern,
		Frequency:       frequency,
	}
}

// extractClockTime pulls an "at HH:MM[am|pm]" time out of the lowered command
// and normalizes it to 24-hour "HH:MM", or returns "" if none is present.
func extractClockTime(command string) string {
	m := clockTimeRe.FindStringSubmatch(command)
	if m == nil {
		return ""
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch m[3] {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// splitClock parses a normalized "HH:MM" string. Inputs here are always
// produced by extractClockTime or the default, so failures degrade to 0.
func splitClock(clock string) (hour, minute int) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
