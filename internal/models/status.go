package models

import "time"

// StackStatus is the deployed state reported by the status command.
type StackStatus struct {
	StackName   string            `json:"stack_name"`
	StackID     string            `json:"stack_id,omitempty"`
	Status      string            `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	LastUpdated time.Time         `json:"last_updated,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`

	Function *FunctionStatus `json:"function,omitempty"`
	Triggers []TriggerStatus `json:"triggers,omitempty"`

	// Warnings lists lookups that failed without aborting the report.
	Warnings []string `json:"warnings,omitempty"`
}

// FunctionStatus summarises the deployed function.
type FunctionStatus struct {
	Name         string            `json:"name"`
	Runtime      string            `json:"runtime,omitempty"`
	State        string            `json:"state,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	Environment  map[string]string `json:"environment,omitempty"`

	// MetricDays is the window for Invocations and Errors.
	MetricDays  int   `json:"metric_days"`
	Invocations int64 `json:"invocations"`
	Errors      int64 `json:"errors"`

	// LastLogEvent is the newest event in the function's log group; nil when
	// the group does not exist yet.
	LastLogEvent *time.Time `json:"last_log_event,omitempty"`
}

// TriggerStatus summarises one deployed schedule rule.
type TriggerStatus struct {
	Name       string `json:"name"`
	Output     string `json:"output"`
	Expression string `json:"expression,omitempty"`
	State      string `json:"state,omitempty"`
}
