// Package metrics exposes engine counters in Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsTotal   atomic.Int64
	predictionFailures atomic.Int64
	batchRunsTotal     atomic.Int64
	explanationsTotal  atomic.Int64
)

func ObservePrediction(failed bool) {
	predictionsTotal.Add(1)
	if failed {
		predictionFailures.Add(1)
	}
}

func ObserveBatchRun() {
	batchRunsTotal.Add(1)
}

func ObserveExplanation() {
	explanationsTotal.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP vitalsight_predictions_total Number of single-patient predictions served.\n")
	fmt.Fprintf(w, "# TYPE vitalsight_predictions_total counter\n")
	fmt.Fprintf(w, "vitalsight_predictions_total %d\n", predictionsTotal.Load())

	fmt.Fprintf(w, "# HELP vitalsight_prediction_failures_total Number of predictions that returned an error.\n")
	fmt.Fprintf(w, "# TYPE vitalsight_prediction_failures_total counter\n")
	fmt.Fprintf(w, "vitalsight_prediction_failures_total %d\n", predictionFailures.Load())

	fmt.Fprintf(w, "# HELP vitalsight_batch_runs_total Number of batch prediction runs.\n")
	fmt.Fprintf(w, "# TYPE vitalsight_batch_runs_total counter\n")
	fmt.Fprintf(w, "vitalsight_batch_runs_total %d\n", batchRunsTotal.Load())

	fmt.Fprintf(w, "# HELP vitalsight_explanations_total Number of explanation requests served.\n")
	fmt.Fprintf(w, "# TYPE vitalsight_explanations_total counter\n")
	fmt.Fprintf(w, "vitalsight_explanations_total %d\n", explanationsTotal.Load())
}
