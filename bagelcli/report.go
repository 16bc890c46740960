package bagelcli

import (
	"fmt"
	"io"

	"github.com/bagel-build/bagel/core"
)

// PrintReport renders a BuildReport to w: one line per target in
// completion order, then a summary line.
func PrintReport(w io.Writer, report *core.BuildReport, verbose bool) {
	for _, res := range report.Results {
		fmt.Fprintf(w, "%-20s %s (%s)\n", res.Target, res.Status, res.Duration)
		if verbose && len(res.Output) > 0 {
			fmt.Fprintf(w, "%s\n", res.Output)
		}
	}
	fmt.Fprintf(w, "\n%d built, %d skipped, %d failed in %s\n",
		report.BuiltCount(), report.SkippedCount(), report.FailedCount(), report.TotalDuration)
}
