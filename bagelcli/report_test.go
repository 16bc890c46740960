package bagelcli

import (
	"bytes"
	"testing"
	"time"

	"github.com/bagel-build/bagel/core"
	"github.com/stretchr/testify/assert"
)

func TestPrintReportSummaryLine(t *testing.T) {
	report := &core.BuildReport{
		Results: []core.TargetResult{
			{Target: "app", Status: core.BuiltStatus(), Duration: 10 * time.Millisecond},
			{Target: "lib", Status: core.SkippedStatus()},
		},
		TotalDuration: 20 * time.Millisecond,
	}

	var buf bytes.Buffer
	PrintReport(&buf, report, false)

	out := buf.String()
	assert.Contains(t, out, "app")
	assert.Contains(t, out, "built")
	assert.Contains(t, out, "1 built, 1 skipped, 0 failed")
}

func TestPrintReportVerboseIncludesOutput(t *testing.T) {
	report := &core.BuildReport{
		Results: []core.TargetResult{
			{Target: "app", Status: core.BuiltStatus(), Output: []byte("hello from build")},
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, report, true)
	assert.Contains(t, buf.String(), "hello from build")
}
