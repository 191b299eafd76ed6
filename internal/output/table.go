package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/aryankumar/procpool/internal/executor"
)

// maxCellWidth bounds value and error cells outside wide mode
const maxCellWidth = 50

// TableFormatter formats output as a borderless table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case Rows:
		return f.formatRows(w, v)
	case map[string]interface{}:
		return f.formatMap(w, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatResult outputs the outcomes of a batch as a table followed by a summary line
func (f *TableFormatter) FormatResult(w io.Writer, result *executor.Result) error {
	if len(result.Outcomes) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"TASK", "STATUS", "VALUE", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "WORKER", "ERROR")
	}
	f.setHeaders(table, headers, colors)

	for _, o := range result.Outcomes {
		table.Append(f.formatOutcomeRow(o, colors))
	}

	table.Render()

	f.printSummary(w, result, colors)

	return nil
}

// formatOutcomeRow formats a single outcome as a table row
func (f *TableFormatter) formatOutcomeRow(o executor.Outcome, colors *ColorScheme) []string {
	index := fmt.Sprintf("#%d", o.Index)
	if !colors.Disabled {
		index = colors.Func(index)
	}

	status := Status(o)
	statusText := status
	if !colors.Disabled {
		statusText = colors.StatusColor(status)(status)
	}

	value := string(o.Value)
	if o.Err != nil && !f.options.Wide {
		// Without the ERROR column the message takes the value's place.
		value = o.Err.Message
		if !colors.Disabled {
			value = colors.StatusColor(status)(value)
		}
	}
	if !f.options.Wide {
		value = truncate(value, maxCellWidth)
	}

	duration := o.Duration.Round(time.Microsecond).String()
	if !colors.Disabled {
		duration = colors.Duration(duration)
	}

	row := []string{index, statusText, value, duration}

	if f.options.Wide {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		row = append(row, fmt.Sprintf("%d", o.WorkerPID), errText)
	}

	return row
}

// formatRows formats tabular data in its own column order
func (f *TableFormatter) formatRows(w io.Writer, rows Rows) error {
	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeaders(table, rows.Headers, colors)
	table.AppendBulk(rows.Rows)
	table.Render()
	return nil
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(w io.Writer, data map[string]interface{}) error {
	table := f.createTable(w)
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	for k, v := range data {
		table.Append([]string{k, fmt.Sprintf("%v", v)})
	}

	table.Render()
	return nil
}

func (f *TableFormatter) setHeaders(table *tablewriter.Table, headers []string, colors *ColorScheme) {
	if f.options.NoHeaders {
		return
	}
	if colors.Disabled {
		table.SetHeader(headers)
		return
	}
	coloredHeaders := make([]string, len(headers))
	for i, h := range headers {
		coloredHeaders[i] = colors.Header(h)
	}
	table.SetHeader(coloredHeaders)
}

// createTable creates a new borderless, tab-separated table
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints a summary of the batch
func (f *TableFormatter) printSummary(w io.Writer, result *executor.Result, colors *ColorScheme) {
	summary := executor.Summarize(result.Outcomes)

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: ")

	successText := fmt.Sprintf("%d successful", summary.Successful)
	if !colors.Disabled {
		successText = colors.Success(successText)
	}

	failedText := fmt.Sprintf("%d failed", summary.Failed)
	if !colors.Disabled && summary.Failed > 0 {
		failedText = colors.Error(failedText)
	}

	parts := []string{successText, failedText}
	if summary.Suppressed > 0 {
		suppressedText := fmt.Sprintf("%d suppressed", summary.Suppressed)
		if !colors.Disabled {
			suppressedText = colors.Warning(suppressedText)
		}
		parts = append(parts, suppressedText)
	}

	durationText := fmt.Sprintf("workers=%d total=%s", result.Workers, result.Duration.Round(time.Millisecond))
	if !colors.Disabled {
		durationText = colors.Duration(durationText)
	}
	parts = append(parts, durationText)

	fmt.Fprintln(w, strings.Join(parts, ", "))
}

// Records converts rows to one map per row keyed by lowercase header
func (r Rows) Records() []map[string]string {
	records := make([]map[string]string, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]string, len(r.Headers))
		for j, h := range r.Headers {
			if j < len(row) {
				rec[strings.ToLower(h)] = row[j]
			}
		}
		records[i] = rec
	}
	return records
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
