package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := New()

	r.RecordSample("imu")
	r.RecordSample("imu")
	r.RecordStep("peak_valley")
	r.RecordFusionMode("fullFusion")
	r.RecordBatteryMode("sleep")
	r.RecordError("pipeline_validate")
	r.RecordLatency("batch_process", 0.005)

	if got := testutil.ToFloat64(r.samplesTotal.WithLabelValues("imu")); got != 2 {
		t.Fatalf("samples counter = %v", got)
	}
	if got := testutil.ToFloat64(r.stepsTotal.WithLabelValues("peak_valley")); got != 1 {
		t.Fatalf("steps counter = %v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("pipeline_validate")); got != 1 {
		t.Fatalf("errors counter = %v", got)
	}
}
