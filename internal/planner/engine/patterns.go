package engine

import "regexp"

// Pattern library. Process-wide read-only data, compiled once; nothing in this
// file is mutated after init.

// taskNameStripRules are applied cumulatively, in order, to the original
// (case-preserving) command when extracting the task name. Order matters:
// "automatically " must run before "auto " so overlapping matches do not leave
// fragments behind.
var taskNameStripRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)schedule\s+`),
	regexp.MustCompile(`(?i)run\s+`),
	regexp.MustCompile(`(?i)do\s+`),
	regexp.MustCompile(`(?i)execute\s+`),
	regexp.MustCompile(`(?i)every\s+\w+`),
	regexp.MustCompile(`(?i)at\s+\d{1,2}:\d{2}`),
	regexp.MustCompile(`(?i)weekly\s+`),
	regexp.MustCompile(`(?i)daily\s+`),
	regexp.MustCompile(`(?i)monthly\s+`),
	regexp.MustCompile(`(?i)automatically\s+`),
	regexp.MustCompile(`(?i)auto\s+`),
}

// clockTimeRe matches "at HH:MM" with an optional am/pm suffix.
var clockTimeRe = regexp.MustCompile(`at\s+(\d{1,2}):(\d{2})\s*(am|pm)?`)

// Frequency patterns, tested in precedence order: daily, weekly, monthly, once.
var (
	dailyRe   = regexp.MustCompile(`daily|every day`)
	weeklyRe  = regexp.MustCompile(`weekly|every week`)
	monthlyRe = regexp.MustCompile(`monthly|every month`)
	onceRe    = regexp.MustCompile(`once|one time|single`)
)

// weekdayEntry maps a weekday name to its index, Monday=0.
type weekdayEntry struct {
	name string
	day  int
}

// weekdayTable is scanned in this fixed order; the first name found in the
// command wins.
var weekdayTable = []weekdayEntry{
	{"monday", 0},
	{"tuesday", 1},
	{"wednesday", 2},
	{"thursday", 3},
	{"friday", 4},
	{"saturday", 5},
	{"sunday", 6},
}

// repetitiveKeywords mark a command as describing a repetitive task.
var repetitiveKeywords = []string{
	"weekly", "daily", "monthly", "recurring", "repeat",
	"every", "automate", "automatic",
}

// autoApproveKeywords mark a command as requesting unattended execution.
var autoApproveKeywords = []string{
	"auto", "automatic", "without approval", "skip approval",
}
