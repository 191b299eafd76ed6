package executor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CountSuccessful returns the number of outcomes without an error
func CountSuccessful(outcomes []Outcome) int {
	count := 0
	for _, o := range outcomes {
		if o.Err == nil {
			count++
		}
	}
	return count
}

// CountFailed returns the number of failures that were not suppressed
func CountFailed(outcomes []Outcome) int {
	count := 0
	for _, o := range outcomes {
		if o.Failed() {
			count++
		}
	}
	return count
}

// CountSuppressed returns the number of failures contained by log-and-continue
func CountSuppressed(outcomes []Outcome) int {
	count := 0
	for _, o := range outcomes {
		if o.Suppressed {
			count++
		}
	}
	return count
}

// FilterSuccessful returns only the successful outcomes
func FilterSuccessful(outcomes []Outcome) []Outcome {
	filtered := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// FilterErrored returns every outcome that carries an error, suppressed or not
func FilterErrored(outcomes []Outcome) []Outcome {
	filtered := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// GroupByWorker groups outcomes by the pid of the worker that ran them
func GroupByWorker(outcomes []Outcome) map[int][]Outcome {
	grouped := make(map[int][]Outcome)
	for _, o := range outcomes {
		grouped[o.WorkerPID] = append(grouped[o.WorkerPID], o)
	}
	return grouped
}

// WorkerPIDs returns the distinct worker pids in ascending order
func WorkerPIDs(outcomes []Outcome) []int {
	seen := make(map[int]bool)
	pids := make([]int, 0)
	for _, o := range outcomes {
		if !seen[o.WorkerPID] {
			seen[o.WorkerPID] = true
			pids = append(pids, o.WorkerPID)
		}
	}
	sort.Ints(pids)
	return pids
}

// AverageDuration calculates the average task duration
func AverageDuration(outcomes []Outcome) time.Duration {
	if len(outcomes) == 0 {
		return 0
	}

	var total time.Duration
	for _, o := range outcomes {
		total += o.Duration
	}

	return total / time.Duration(len(outcomes))
}

// MaxDuration returns the longest task duration
func MaxDuration(outcomes []Outcome) time.Duration {
	if len(outcomes) == 0 {
		return 0
	}

	max := outcomes[0].Duration
	for _, o := range outcomes {
		if o.Duration > max {
			max = o.Duration
		}
	}
	return max
}

// MinDuration returns the shortest task duration
func MinDuration(outcomes []Outcome) time.Duration {
	if len(outcomes) == 0 {
		return 0
	}

	min := outcomes[0].Duration
	for _, o := range outcomes {
		if o.Duration < min {
			min = o.Duration
		}
	}
	return min
}

// Values decodes every outcome's value into a slice of R, in order.
// Suppressed failures decode from null, which leaves the zero value of R.
func Values[R any](outcomes []Outcome) ([]R, error) {
	values := make([]R, len(outcomes))
	for i, o := range outcomes {
		if len(o.Value) == 0 {
			continue
		}
		if err := json.Unmarshal(o.Value, &values[i]); err != nil {
			return nil, fmt.Errorf("decode result %d: %w", o.Index, err)
		}
	}
	return values, nil
}

// Summary provides a summary of a batch
type Summary struct {
	Total       int
	Successful  int
	Failed      int
	Suppressed  int
	Workers     int
	AvgDuration time.Duration
	MaxDuration time.Duration
	MinDuration time.Duration
}

// Summarize creates a summary of the outcomes
func Summarize(outcomes []Outcome) Summary {
	return Summary{
		Total:       len(outcomes),
		Successful:  CountSuccessful(outcomes),
		Failed:      CountFailed(outcomes),
		Suppressed:  CountSuppressed(outcomes),
		Workers:     len(WorkerPIDs(outcomes)),
		AvgDuration: AverageDuration(outcomes),
		MaxDuration: MaxDuration(outcomes),
		MinDuration: MinDuration(outcomes),
	}
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Successful: %d, ", s.Successful))
	sb.WriteString(fmt.Sprintf("Failed: %d", s.Failed))

	if s.Suppressed > 0 {
		sb.WriteString(fmt.Sprintf(", Suppressed: %d", s.Suppressed))
	}

	if s.Total > 0 {
		sb.WriteString(fmt.Sprintf(", Workers: %d", s.Workers))
		sb.WriteString(fmt.Sprintf(", Avg: %s", s.AvgDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Min: %s", s.MinDuration.Round(time.Millisecond)))
	}

	return sb.String()
}

// HasErrors returns true if any outcome carries an error
func HasErrors(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}

// AllSuccessful returns true if no outcome carries an error
func AllSuccessful(outcomes []Outcome) bool {
	return !HasErrors(outcomes)
}

// SuccessRate returns the success rate as a percentage (0.0 to 100.0)
func SuccessRate(outcomes []Outcome) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}
	return float64(CountSuccessful(outcomes)) / float64(len(outcomes)) * 100.0
}
