// Package output provides formatters for displaying procpool results.
//
// Batch results can be rendered as a borderless table with a summary line, as JSON or as
// YAML. Other listings (registered functions, metrics) go through Format as Rows, which
// keeps their column order in every format.
//
//	formatter := output.NewFormatter(output.FormatTable, output.WithWide(true))
//	formatter.FormatResult(os.Stdout, result)
//
// Colors are enabled only for terminals and can be turned off with WithNoColor.
//
// Color scheme:
//   - Task indexes: Cyan, Bold
//   - Success: Green
//   - Failures: Red, Bold
//   - Suppressed failures: Yellow
//   - Headers: White, Bold
//   - Durations: Blue
package output
