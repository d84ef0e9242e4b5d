package kbench

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Format selects a report rendering
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatText, nil
	}
	return "", &Error{
		Type:    ErrTypeInvalidArg,
		Op:      "ParseFormat",
		Message: "unknown report format",
		Context: s,
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)

	statusColors = map[Status]lipgloss.Color{
		StatusReference: lipgloss.Color("39"),
		StatusPass:      lipgloss.Color("46"),
		StatusFail:      lipgloss.Color("196"),
		StatusError:     lipgloss.Color("196"),
		StatusUnchecked: lipgloss.Color("214"),
	}
)

// Render writes report to w in the given format
func Render(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatYAML:
		return writeYAML(w, report)
	case FormatText, "":
		return writeText(w, report)
	}
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      "Render",
		Message: "unknown report format",
		Context: string(format),
	}
}

var timingHeaders = []string{"Implementation", "Func (µs)", "ROI (µs)", "Ovhd (µs)", "Speedup"}

// resultHeaders returns the table headers: one max/mean error column pair
// per named output, or a single pair for single-output comparisons.
func resultHeaders(outputs []string) []string {
	headers := slices.Clone(timingHeaders)
	if len(outputs) == 0 {
		headers = append(headers, "Max |err|", "Mean |err|")
	}
	for _, name := range outputs {
		headers = append(headers, name+" max |err|", name+" mean |err|")
	}
	return append(headers, "Status")
}

// outputNames returns the output names of the first multi-output verdict
func outputNames(results []Result) []string {
	for _, res := range results {
		if res.Verdict == nil || len(res.Verdict.Outputs) == 0 {
			continue
		}
		names := make([]string, len(res.Verdict.Outputs))
		for i, o := range res.Verdict.Outputs {
			names[i] = o.Name
		}
		return names
	}
	return nil
}

// errCells returns the error columns of one row
func errCells(res Result, outputs []string) []string {
	if len(outputs) == 0 {
		if res.Verdict == nil {
			return []string{"-", "-"}
		}
		return []string{formatErr(res.Verdict.MaxAbsErr), formatErr(res.Verdict.MeanAbsErr())}
	}
	cells := make([]string, 0, 2*len(outputs))
	for _, name := range outputs {
		maxErr, meanErr := "-", "-"
		if res.Verdict != nil {
			for _, o := range res.Verdict.Outputs {
				if o.Name == name {
					maxErr, meanErr = formatErr(o.MaxAbsErr), formatErr(o.MeanAbsErr())
					break
				}
			}
		}
		cells = append(cells, maxErr, meanErr)
	}
	return cells
}

func writeText(w io.Writer, report *Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("kbench comparison") + "\n")
	h := report.Host
	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf(
		"run %s  %s/%s  %d cpus  %s  [%s]",
		report.RunID, h.GOOS, h.GOARCH, h.NumCPU, h.GoVersion, h.FeatureString())))
	fmt.Fprintf(&b, "%s\n\n", mutedStyle.Render(fmt.Sprintf(
		"warmup %d  iterations %d", report.WarmupIters, report.BenchIters)))

	ref, hasRef := report.Reference()
	outputs := outputNames(report.Results)
	headers := resultHeaders(outputs)
	statusCol := len(headers) - 1

	rows := make([][]string, 0, len(report.Results))
	statuses := make([]Status, 0, len(report.Results))
	for _, res := range report.Results {
		speedup := "-"
		if hasRef && !res.Reference {
			if s := res.Speedup(ref); s > 0 {
				speedup = fmt.Sprintf("%.2fx", s)
			}
		}
		row := []string{
			res.Name,
			formatMicros(res.FuncMicros),
			formatMicros(res.ROIMicros),
			formatMicros(res.OverheadMicros),
			speedup,
		}
		row = append(row, errCells(res, outputs)...)
		rows = append(rows, append(row, statusCell(res)))
		statuses = append(statuses, res.Status())
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == statusCol:
				return cellStyle.Bold(true).Foreground(statusColors[statuses[row]])
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	b.WriteString(t.String() + "\n")

	for _, res := range report.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(&b, "%s: %v\n", res.Name, res.Err)
		case res.Verdict != nil && !res.Verdict.Passed():
			fmt.Fprintf(&b, "%s: %s\n", res.Name, res.Verdict)
		}
	}

	if len(report.Plugins) > 0 {
		b.WriteString("\n" + titleStyle.Render("plugin results") + "\n")
		b.WriteString(pluginTable(report.Plugins) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func pluginTable(results []PluginResult) string {
	rows := make([][]string, 0, len(results))
	for _, pr := range results {
		if pr.Err != nil {
			rows = append(rows, []string{pr.Plugin, pr.Name, "-", "-", "-", "-", pr.Err.Error()})
			continue
		}
		roi := "-"
		if pr.ROINsPerOp > 0 {
			roi = strconv.FormatFloat(pr.ROINsPerOp, 'f', 1, 64)
		}
		rows = append(rows, []string{
			pr.Plugin,
			pr.Name,
			strconv.Itoa(pr.Iterations),
			strconv.FormatFloat(pr.NsPerOp, 'f', 1, 64),
			roi,
			strconv.FormatInt(pr.AllocsPerOp, 10),
			strconv.FormatInt(pr.BytesPerOp, 10),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Plugin", "Implementation", "Iterations", "ns/op", "ROI ns/op", "allocs/op", "B/op").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col < 2 {
				return cellStyle
			}
			return numberStyle
		}).
		String()
}

func statusCell(res Result) string {
	st := res.Status()
	if st != StatusFail {
		return string(st)
	}
	if o, ok := res.Verdict.FailedOutput(); ok {
		if o.FirstMismatch >= 0 {
			return fmt.Sprintf("%s %s@%d", st, o.Name, o.FirstMismatch)
		}
		return fmt.Sprintf("%s %s", st, o.Name)
	}
	if res.Verdict.FirstMismatch >= 0 {
		return fmt.Sprintf("%s @%d", st, res.Verdict.FirstMismatch)
	}
	return string(st)
}

func formatMicros(us float64) string {
	return strconv.FormatFloat(us, 'f', 3, 64)
}

func formatErr(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'e', 3, 64)
}
