package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
)

// RenderJSON writes v to w as indented JSON followed by a newline.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderStatus writes a human-readable stack status report to w. now is the
// reference time for relative timestamps.
func RenderStatus(w io.Writer, st *models.StackStatus, now time.Time) {
	fmt.Fprintf(w, "Stack:        %s\n", st.StackName)
	fmt.Fprintf(w, "Status:       %s\n", st.Status)
	if st.Reason != "" {
		fmt.Fprintf(w, "Reason:       %s\n", st.Reason)
	}
	if !st.LastUpdated.IsZero() {
		fmt.Fprintf(w, "Last update:  %s\n", humanize.RelTime(st.LastUpdated, now, "ago", "from now"))
	}

	if len(st.Parameters) > 0 {
		fmt.Fprintln(w, "\nParameters:")
		writeMap(w, st.Parameters)
	}
	if len(st.Outputs) > 0 {
		fmt.Fprintln(w, "\nOutputs:")
		writeMap(w, st.Outputs)
	}

	if fn := st.Function; fn != nil {
		fmt.Fprintln(w, "\nFunction:")
		fmt.Fprintf(w, "  %-14s %s\n", "name", fn.Name)
		fmt.Fprintf(w, "  %-14s %s\n", "runtime", orDash(fn.Runtime))
		fmt.Fprintf(w, "  %-14s %s\n", "state", orDash(fn.State))
		for _, k := range sortedKeys(fn.Environment) {
			fmt.Fprintf(w, "  %-14s %s\n", "env "+k, orDash(fn.Environment[k]))
		}
		fmt.Fprintf(w, "  %-14s %s (last %d days)\n", "invocations", humanize.Comma(fn.Invocations), fn.MetricDays)
		fmt.Fprintf(w, "  %-14s %s (last %d days)\n", "errors", humanize.Comma(fn.Errors), fn.MetricDays)
		last := "never"
		if fn.LastLogEvent != nil {
			last = humanize.RelTime(*fn.LastLogEvent, now, "ago", "from now")
		}
		fmt.Fprintf(w, "  %-14s %s\n", "last log", last)
	}

	if len(st.Triggers) > 0 {
		fmt.Fprintln(w, "\nSchedules:")
		for _, tr := range st.Triggers {
			fmt.Fprintf(w, "  %-14s %-24s %-8s %s\n", tr.Output, orDash(tr.Expression), orDash(tr.State), tr.Name)
		}
	}

	for _, warning := range st.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func writeMap(w io.Writer, m map[string]string) {
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(w, "  %-14s %s\n", k, orDash(m[k]))
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
