package monitoring

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// MetricsExporter counts relay activity and renders it for Prometheus
type MetricsExporter struct {
	submissions             atomic.Int64
	submissionFailures      atomic.Int64
	refreshes               atomic.Int64
	refreshFailures         atomic.Int64
	materializations        atomic.Int64
	materializationFailures atomic.Int64
	uploads                 atomic.Int64
	uploadFailures          atomic.Int64
}

// NewMetricsExporter creates a new metrics exporter
func NewMetricsExporter() *MetricsExporter {
	return &MetricsExporter{}
}

// RecordSubmission counts a /generate call that reached the generation service
func (me *MetricsExporter) RecordSubmission(err error) {
	if me == nil {
		return
	}
	me.submissions.Add(1)
	if err != nil {
		me.submissionFailures.Add(1)
	}
}

// RecordRefresh counts a status poll against the generation service
func (me *MetricsExporter) RecordRefresh(err error) {
	if me == nil {
		return
	}
	me.refreshes.Add(1)
	if err != nil {
		me.refreshFailures.Add(1)
	}
}

// RecordMaterialization counts an attempt to relay a finished asset
func (me *MetricsExporter) RecordMaterialization(err error) {
	if me == nil {
		return
	}
	me.materializations.Add(1)
	if err != nil {
		me.materializationFailures.Add(1)
	}
}

// RecordUpload counts an image upload
func (me *MetricsExporter) RecordUpload(err error) {
	if me == nil {
		return
	}
	me.uploads.Add(1)
	if err != nil {
		me.uploadFailures.Add(1)
	}
}

// GetPrometheusMetrics returns metrics in Prometheus text format
func (me *MetricsExporter) GetPrometheusMetrics() string {
	var b strings.Builder

	counter := func(name, help string, value int64) {
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s counter\n", name)
		fmt.Fprintf(&b, "%s %d\n", name, value)
	}

	counter("music_relay_submissions_total", "Generation requests forwarded upstream", me.submissions.Load())
	counter("music_relay_submission_failures_total", "Generation requests rejected upstream", me.submissionFailures.Load())
	counter("music_relay_refreshes_total", "Status polls forwarded upstream", me.refreshes.Load())
	counter("music_relay_refresh_failures_total", "Status polls that failed upstream", me.refreshFailures.Load())
	counter("music_relay_materializations_total", "Attempts to relay a generated asset", me.materializations.Load())
	counter("music_relay_materialization_failures_total", "Failed attempts to relay a generated asset", me.materializationFailures.Load())
	counter("music_relay_uploads_total", "Image uploads received", me.uploads.Load())
	counter("music_relay_upload_failures_total", "Image uploads that could not be stored", me.uploadFailures.Load())

	return b.String()
}
