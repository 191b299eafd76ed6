package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONFormatter_FormatResult(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewJSONFormatter(nil)

	if err := formatter.FormatResult(&buf, sampleResult()); err != nil {
		t.Fatalf("FormatResult() error = %v", err)
	}

	var view ResultView
	if err := json.Unmarshal(buf.Bytes(), &view); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if view.Func != "fail" || len(view.Outcomes) != 4 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Outcomes[3].Status != StatusFailed || view.Outcomes[3].Error != "intentional failure #3" {
		t.Errorf("unexpected failed outcome %+v", view.Outcomes[3])
	}
	if view.Summary.Suppressed != 1 {
		t.Errorf("Summary.Suppressed = %d, want 1", view.Summary.Suppressed)
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	tests := []struct {
		name  string
		data  interface{}
		check func(t *testing.T, raw []byte)
	}{
		{
			name: "map",
			data: map[string]interface{}{"workers": 4},
			check: func(t *testing.T, raw []byte) {
				var got map[string]int
				if err := json.Unmarshal(raw, &got); err != nil || got["workers"] != 4 {
					t.Errorf("unexpected output %s (%v)", raw, err)
				}
			},
		},
		{
			name: "rows become records",
			data: Rows{Headers: []string{"NAME"}, Rows: [][]string{{"double"}, {"sumsq"}}},
			check: func(t *testing.T, raw []byte) {
				var got []map[string]string
				if err := json.Unmarshal(raw, &got); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if len(got) != 2 || got[1]["name"] != "sumsq" {
					t.Errorf("unexpected records %v", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONFormatter(nil).Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			tt.check(t, buf.Bytes())
		})
	}
}

func TestJSONFormatter_Indented(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(nil).Format(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("\n  \"a\": 1")) {
		t.Errorf("expected two-space indentation, got %q", buf.String())
	}
}
