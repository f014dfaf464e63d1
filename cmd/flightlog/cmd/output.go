package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ssargent/flightlog/pkg/catalog"
	"github.com/ssargent/flightlog/pkg/query"
	"github.com/ssargent/flightlog/pkg/ulog"
)

func jsonOutput() bool {
	return cfg.Output.Format == "json"
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// outputJSON writes v as indented JSON
func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// jsonSafe replaces NaN and infinities, which JSON cannot carry, with nil.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}

// formatValue renders a decoded value for table output
func formatValue(v any) string {
	switch x := v.(type) {
	case []byte:
		return fmt.Sprintf("%x", x)
	case float32:
		return fmt.Sprintf("%g", x)
	case float64:
		return fmt.Sprintf("%g", x)
	}
	return fmt.Sprint(v)
}

func formatTimestamp(us uint64) string {
	return (time.Duration(us) * time.Microsecond).String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type infoOutput struct {
	Path            string         `json:"path"`
	FileVersion     uint8          `json:"file_version"`
	StartTimestamp  uint64         `json:"start_timestamp"`
	LastTimestamp   uint64         `json:"last_timestamp"`
	SoftwareVersion string         `json:"software_version,omitempty"`
	Info            map[string]any `json:"info"`
	Topics          int            `json:"topics"`
	Messages        int            `json:"messages"`
	Dropouts        int            `json:"dropouts"`
	Stats           ulog.Stats     `json:"stats"`
	Warnings        []string       `json:"warnings,omitempty"`
	Truncated       bool           `json:"truncated"`
}

// outputInfo displays the header, info messages and decode statistics
func outputInfo(w io.Writer, path string, log *ulog.Log) error {
	out := infoOutput{
		Path:           path,
		FileVersion:    log.FileVersion(),
		StartTimestamp: log.StartTimestamp(),
		LastTimestamp:  log.LastTimestamp(),
		Info:           make(map[string]any),
		Topics:         len(log.Topics()),
		Messages:       len(log.Messages()),
		Dropouts:       len(log.Dropouts()),
		Stats:          log.Stats(),
		Truncated:      log.Truncated(),
	}
	out.SoftwareVersion, _ = log.SoftwareVersion()
	for k, v := range log.Info() {
		out.Info[k] = jsonSafe(v)
	}
	for _, warning := range log.Warnings() {
		out.Warnings = append(out.Warnings, warning.Error())
	}

	if jsonOutput() {
		return outputJSON(w, out)
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "File:\t%s\n", out.Path)
	fmt.Fprintf(tw, "Version:\t%d\n", out.FileVersion)
	if out.SoftwareVersion != "" {
		fmt.Fprintf(tw, "Software:\t%s\n", out.SoftwareVersion)
	}
	fmt.Fprintf(tw, "Start:\t%s\n", formatTimestamp(out.StartTimestamp))
	fmt.Fprintf(tw, "Duration:\t%s\n", formatTimestamp(out.LastTimestamp-out.StartTimestamp))
	fmt.Fprintf(tw, "Topics:\t%d\n", out.Topics)
	fmt.Fprintf(tw, "Messages:\t%d\n", out.Messages)
	fmt.Fprintf(tw, "Dropouts:\t%d\n", out.Dropouts)
	fmt.Fprintf(tw, "Records:\t%d (%d short, %d filtered, %d dropped)\n",
		out.Stats.DataRecords, out.Stats.ShortRecords, out.Stats.FilteredRecords, out.Stats.DroppedRecords)
	fmt.Fprintf(tw, "Bytes:\t%d\n", out.Stats.Bytes)
	if out.Truncated {
		fmt.Fprintf(tw, "Truncated:\tyes\n")
	}
	for _, k := range sortedKeys(log.Info()) {
		fmt.Fprintf(tw, "%s:\t%s\n", k, formatValue(log.Info()[k]))
	}
	for _, warning := range out.Warnings {
		fmt.Fprintf(tw, "Warning:\t%s\n", warning)
	}
	return tw.Flush()
}

type paramChangeOutput struct {
	Timestamp uint64 `json:"timestamp"`
	Name      string `json:"name"`
	Value     any    `json:"value"`
}

// outputParams displays initial parameters and, when changes is set, the
// parameters changed in flight
func outputParams(w io.Writer, log *ulog.Log, changes bool) error {
	initial := log.InitialParameters()
	if jsonOutput() {
		out := struct {
			Initial map[string]any      `json:"initial"`
			Changed []paramChangeOutput `json:"changed,omitempty"`
		}{Initial: make(map[string]any, len(initial))}
		for k, v := range initial {
			out.Initial[k] = jsonSafe(v)
		}
		if changes {
			for _, c := range log.ChangedParameters() {
				out.Changed = append(out.Changed, paramChangeOutput{c.Timestamp, c.Name, jsonSafe(c.Value)})
			}
		}
		return outputJSON(w, out)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tVALUE")
	for _, k := range sortedKeys(initial) {
		fmt.Fprintf(tw, "%s\t%s\n", k, formatValue(initial[k]))
	}
	if changes && len(log.ChangedParameters()) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "TIME\tNAME\tVALUE")
		for _, c := range log.ChangedParameters() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", formatTimestamp(c.Timestamp), c.Name, formatValue(c.Value))
		}
	}
	return tw.Flush()
}

type messageOutput struct {
	Level     string `json:"level"`
	Timestamp uint64 `json:"timestamp"`
	Text      string `json:"text"`
}

// outputMessages displays logged text lines
func outputMessages(w io.Writer, messages []ulog.LogMessage) error {
	if jsonOutput() {
		out := make([]messageOutput, 0, len(messages))
		for _, m := range messages {
			out = append(out, messageOutput{m.LevelName(), m.Timestamp, m.Text})
		}
		return outputJSON(w, out)
	}

	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages found")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tLEVEL\tMESSAGE")
	for _, m := range messages {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", formatTimestamp(m.Timestamp), m.LevelName(), m.Text)
	}
	return tw.Flush()
}

// outputTopics displays the decoded topics
func outputTopics(w io.Writer, log *ulog.Log) error {
	summaries := catalog.Summarize("", 0, log).Topics
	if jsonOutput() {
		return outputJSON(w, summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No topics found")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tINSTANCE\tMSG ID\tRECORDS\tFIELDS")
	for _, t := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", t.Name, t.MultiID, t.MsgID, t.Records, t.Fields)
	}
	return tw.Flush()
}

type rowOutput struct {
	Index     int    `json:"index"`
	Timestamp uint64 `json:"timestamp"`
	Values    []any  `json:"values"`
}

// outputRows displays query results
func outputRows(w io.Writer, columns []string, rows []query.Row) error {
	if jsonOutput() {
		out := struct {
			Columns []string    `json:"columns"`
			Rows    []rowOutput `json:"rows"`
		}{Columns: columns, Rows: make([]rowOutput, 0, len(rows))}
		for _, r := range rows {
			values := make([]any, len(r.Values))
			for i, v := range r.Values {
				values[i] = jsonSafe(v)
			}
			out.Rows = append(out.Rows, rowOutput{r.Index, r.Timestamp, values})
		}
		return outputJSON(w, out)
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "#\t%s\n", strings.Join(columns, "\t"))
	for _, r := range rows {
		cells := make([]string, len(r.Values))
		for i, v := range r.Values {
			cells[i] = formatValue(v)
		}
		fmt.Fprintf(tw, "%d\t%s\n", r.Index, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

type sampleOutput struct {
	Index     int    `json:"index"`
	Timestamp uint64 `json:"timestamp"`
	Value     any    `json:"value"`
}

// outputChanges displays a value-change series
func outputChanges(w io.Writer, field string, samples []ulog.Sample) error {
	if jsonOutput() {
		out := make([]sampleOutput, 0, len(samples))
		for _, s := range samples {
			out = append(out, sampleOutput{s.Index, s.Timestamp, jsonSafe(s.Value)})
		}
		return outputJSON(w, out)
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "#\tTIME\t%s\n", field)
	for _, s := range samples {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Index, formatTimestamp(s.Timestamp), formatValue(s.Value))
	}
	return tw.Flush()
}

// outputEntry displays a single catalog entry
func outputEntry(w io.Writer, e catalog.Entry) error {
	if jsonOutput() {
		return outputJSON(w, e)
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Path:\t%s\n", e.Path)
	fmt.Fprintf(tw, "Size:\t%d\n", e.Size)
	if e.SystemName != "" {
		fmt.Fprintf(tw, "System:\t%s\n", e.SystemName)
	}
	if e.SoftwareVersion != "" {
		fmt.Fprintf(tw, "Software:\t%s\n", e.SoftwareVersion)
	}
	fmt.Fprintf(tw, "Duration:\t%s\n", e.Duration())
	fmt.Fprintf(tw, "Topics:\t%d\n", len(e.Topics))
	fmt.Fprintf(tw, "Parameters:\t%d\n", e.Parameters)
	fmt.Fprintf(tw, "Messages:\t%d\n", e.Messages)
	fmt.Fprintf(tw, "Warnings:\t%d\n", len(e.Warnings))
	fmt.Fprintf(tw, "Added:\t%s\n", e.AddedAt.Format(time.RFC3339))
	return tw.Flush()
}

// outputEntries displays multiple catalog entries
func outputEntries(w io.Writer, entries []catalog.Entry) error {
	if jsonOutput() {
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return outputJSON(w, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No logs found")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPATH\tSOFTWARE\tDURATION\tTOPICS\tADDED")
	for _, e := range entries {
		path := e.Path
		if len(path) > 50 {
			path = "..." + path[len(path)-47:]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			path,
			e.SoftwareVersion,
			e.Duration().Round(time.Second),
			len(e.Topics),
			e.AddedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
