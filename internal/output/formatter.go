package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/aryankumar/procpool/internal/executor"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs data in a borderless table
	FormatTable Format = "table"
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
)

// Outcome status values
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusSuppressed = "suppressed"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatResult outputs the outcomes of a batch followed by a summary
	FormatResult(w io.Writer, result *executor.Result) error
}

// Rows is tabular data with a fixed column order
type Rows struct {
	Headers []string
	Rows    [][]string
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Wide enables wide output with additional columns
	Wide bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithWide enables wide output
func WithWide(wide bool) Option {
	return func(o *Options) {
		o.Wide = wide
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// OutcomeView is the serialisable form of one outcome
type OutcomeView struct {
	Index    int         `json:"index" yaml:"index"`
	Status   string      `json:"status" yaml:"status"`
	Value    interface{} `json:"value" yaml:"value"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
	Origin   string      `json:"origin,omitempty" yaml:"origin,omitempty"`
	Worker   int         `json:"worker" yaml:"worker"`
	Duration string      `json:"duration" yaml:"duration"`
}

// SummaryView is the serialisable form of a batch summary
type SummaryView struct {
	Total       int    `json:"total" yaml:"total"`
	Successful  int    `json:"successful" yaml:"successful"`
	Failed      int    `json:"failed" yaml:"failed"`
	Suppressed  int    `json:"suppressed" yaml:"suppressed"`
	Workers     int    `json:"workers" yaml:"workers"`
	AvgDuration string `json:"avgDuration" yaml:"avgDuration"`
}

// ResultView is the serialisable form of a batch result
type ResultView struct {
	BatchID  string        `json:"batchId" yaml:"batchId"`
	Func     string        `json:"func" yaml:"func"`
	Workers  int           `json:"workers" yaml:"workers"`
	Duration string        `json:"duration" yaml:"duration"`
	Outcomes []OutcomeView `json:"outcomes" yaml:"outcomes"`
	Summary  SummaryView   `json:"summary" yaml:"summary"`
}

// Status returns the display status of an outcome
func Status(o executor.Outcome) string {
	switch {
	case o.Suppressed:
		return StatusSuppressed
	case o.Err != nil:
		return StatusFailed
	default:
		return StatusSuccess
	}
}

// NewResultView converts a batch result for serialisation
func NewResultView(result *executor.Result) ResultView {
	view := ResultView{
		BatchID:  result.BatchID,
		Func:     result.Func,
		Workers:  result.Workers,
		Duration: result.Duration.Round(time.Millisecond).String(),
		Outcomes: make([]OutcomeView, len(result.Outcomes)),
	}

	for i, o := range result.Outcomes {
		item := OutcomeView{
			Index:    o.Index,
			Status:   Status(o),
			Worker:   o.WorkerPID,
			Duration: o.Duration.Round(time.Microsecond).String(),
		}
		if len(o.Value) > 0 {
			var v interface{}
			if err := json.Unmarshal(o.Value, &v); err == nil {
				item.Value = v
			} else {
				item.Value = string(o.Value)
			}
		}
		if o.Err != nil {
			item.Error = o.Err.Message
			item.Origin = o.Err.Origin
		}
		view.Outcomes[i] = item
	}

	s := executor.Summarize(result.Outcomes)
	view.Summary = SummaryView{
		Total:       s.Total,
		Successful:  s.Successful,
		Failed:      s.Failed,
		Suppressed:  s.Suppressed,
		Workers:     s.Workers,
		AvgDuration: s.AvgDuration.Round(time.Microsecond).String(),
	}

	return view
}
