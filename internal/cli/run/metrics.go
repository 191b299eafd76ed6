package run

import (
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aryankumar/procpool/internal/output"
)

// metricPrefix selects the executor's families out of the default registry
const metricPrefix = "procpool_"

// metricRows gathers the executor metrics from the default registry.
// Counters and gauges show their value; histograms show count and sum.
func metricRows() (output.Rows, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return output.Rows{}, err
	}

	rows := output.Rows{Headers: []string{"METRIC", "LABELS", "VALUE"}}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metricPrefix) {
			continue
		}

		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			var value string
			switch {
			case m.GetCounter() != nil:
				value = formatFloat(m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				value = formatFloat(m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = "count=" + strconv.FormatUint(h.GetSampleCount(), 10) +
					" sum=" + formatSeconds(h.GetSampleSum())
			default:
				continue
			}

			rows.Rows = append(rows.Rows, []string{mf.GetName(), strings.Join(labels, ","), value})
		}
	}

	return rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
