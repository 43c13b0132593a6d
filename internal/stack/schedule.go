package stack

import (
	"fmt"
	"strings"
)

// Schedule is a cron schedule in the six-field EventBridge form. Empty
// fields take the EventBridge defaults when rendered: minute, hour, month and
// year become "*"; day-of-month becomes "?" when a weekday is set and "*"
// otherwise; weekday becomes "?".
//
// Weekdays are numbered 1-7 starting on Sunday, so "2-6" is Monday to Friday.
// All times are UTC.
type Schedule struct {
	Minute  string
	Hour    string
	Day     string
	Month   string
	WeekDay string
	Year    string
}

// StartSchedule fires at 00:00 UTC Monday to Friday (09:00 JST).
func StartSchedule() Schedule {
	return Schedule{Minute: "0", Hour: "0", WeekDay: "2-6"}
}

// StopSchedule fires at 14:00 UTC Monday to Friday (23:00 JST).
func StopSchedule() Schedule {
	return Schedule{Minute: "0", Hour: "14", WeekDay: "2-6"}
}

// Validate reports field combinations EventBridge rejects.
func (s Schedule) Validate() error {
	if s.Day != "" && s.WeekDay != "" {
		return fmt.Errorf("schedule: day-of-month %q and weekday %q cannot both be set", s.Day, s.WeekDay)
	}
	for name, v := range map[string]string{
		"minute": s.Minute, "hour": s.Hour, "day": s.Day,
		"month": s.Month, "weekday": s.WeekDay, "year": s.Year,
	} {
		if strings.ContainsAny(v, " \t") {
			return fmt.Errorf("schedule: %s field %q contains whitespace", name, v)
		}
	}
	return nil
}

// Expression renders the schedule as an EventBridge schedule expression,
// e.g. "cron(0 14 ? * 2-6 *)".
func (s Schedule) Expression() string {
	day := s.Day
	if day == "" {
		day = "*"
		if s.WeekDay != "" {
			day = "?"
		}
	}
	return fmt.Sprintf("cron(%s %s %s %s %s %s)",
		orDefault(s.Minute, "*"),
		orDefault(s.Hour, "*"),
		day,
		orDefault(s.Month, "*"),
		orDefault(s.WeekDay, "?"),
		orDefault(s.Year, "*"),
	)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Trigger is a scheduled rule that invokes the function.
type Trigger struct {
	// LogicalID is the AWS::Events::Rule logical ID.
	LogicalID string

	// PermissionID is the logical ID of the AWS::Lambda::Permission that lets
	// the rule invoke the function.
	PermissionID string

	// OutputName is the stack output carrying the physical rule name.
	OutputName string

	Description string
	Schedule    Schedule
}

// Triggers returns the start and stop triggers, in that order.
func Triggers() []Trigger {
	return []Trigger{
		{
			LogicalID:    LogicalStartRule,
			PermissionID: LogicalStartPermission,
			OutputName:   OutputStartRuleName,
			Description:  "Start EC2 and RDS targets at 00:00 UTC on weekdays",
			Schedule:     StartSchedule(),
		},
		{
			LogicalID:    LogicalStopRule,
			PermissionID: LogicalStopPermission,
			OutputName:   OutputStopRuleName,
			Description:  "Stop EC2 and RDS targets at 14:00 UTC on weekdays",
			Schedule:     StopSchedule(),
		},
	}
}
