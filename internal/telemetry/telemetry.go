package telemetry

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

const (
	MetricPredictions     = "predictions"
	MetricClientErrors    = "errors.client"
	MetricServerErrors    = "errors.server"
	MetricUploadFailures  = "failures.upload"
	MetricPersistFailures = "failures.persist"
	MetricInference       = "inference"
	labelPrefix           = "predictions.label."
)

// Telemetry keeps process-local counters. Each instance owns its registry so
// tests do not share state through gometrics.DefaultRegistry.
type Telemetry struct {
	registry        gometrics.Registry
	predictions     gometrics.Counter
	clientErrors    gometrics.Counter
	serverErrors    gometrics.Counter
	uploadFailures  gometrics.Counter
	persistFailures gometrics.Counter
	inference       gometrics.Timer
}

func New() *Telemetry {
	r := gometrics.NewRegistry()
	return &Telemetry{
		registry:        r,
		predictions:     gometrics.GetOrRegisterCounter(MetricPredictions, r),
		clientErrors:    gometrics.GetOrRegisterCounter(MetricClientErrors, r),
		serverErrors:    gometrics.GetOrRegisterCounter(MetricServerErrors, r),
		uploadFailures:  gometrics.GetOrRegisterCounter(MetricUploadFailures, r),
		persistFailures: gometrics.GetOrRegisterCounter(MetricPersistFailures, r),
		inference:       gometrics.GetOrRegisterTimer(MetricInference, r),
	}
}

func (t *Telemetry) Prediction(label string, took time.Duration) {
	t.predictions.Inc(1)
	t.inference.Update(took)
	gometrics.GetOrRegisterCounter(labelPrefix+label, t.registry).Inc(1)
}

func (t *Telemetry) ClientError()    { t.clientErrors.Inc(1) }
func (t *Telemetry) ServerError()    { t.serverErrors.Inc(1) }
func (t *Telemetry) UploadFailure()  { t.uploadFailures.Inc(1) }
func (t *Telemetry) PersistFailure() { t.persistFailures.Inc(1) }

// Snapshot flattens the registry into name -> value. Counters map to their
// count; the inference timer maps to a summary in milliseconds.
func (t *Telemetry) Snapshot() map[string]interface{} {
	out := make(map[string]interface{})
	t.registry.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case gometrics.Counter:
			out[name] = m.Count()
		case gometrics.Timer:
			s := m.Snapshot()
			out[name] = map[string]interface{}{
				"count":   s.Count(),
				"mean_ms": s.Mean() / float64(time.Millisecond),
				"p95_ms":  s.Percentile(0.95) / float64(time.Millisecond),
				"max_ms":  float64(s.Max()) / float64(time.Millisecond),
			}
		}
	})
	return out
}
