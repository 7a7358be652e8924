package monitoring

import (
	"errors"
	"strings"
	"testing"
)

func TestMetricsExporterCounts(t *testing.T) {
	me := NewMetricsExporter()
	me.RecordSubmission(nil)
	me.RecordSubmission(errors.New("boom"))
	me.RecordMaterialization(nil)
	me.RecordUpload(nil)

	out := me.GetPrometheusMetrics()
	for _, line := range []string{
		"music_relay_submissions_total 2",
		"music_relay_submission_failures_total 1",
		"music_relay_materializations_total 1",
		"music_relay_materialization_failures_total 0",
		"music_relay_uploads_total 1",
		"# TYPE music_relay_refreshes_total counter",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Fatalf("metrics missing %q:\n%s", line, out)
		}
	}
}

func TestMetricsExporterNilSafe(t *testing.T) {
	var me *MetricsExporter
	me.RecordSubmission(nil)
	me.RecordRefresh(errors.New("x"))
	me.RecordMaterialization(nil)
	me.RecordUpload(nil)
}
