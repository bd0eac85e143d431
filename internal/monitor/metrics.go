package monitor

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

// Metrics counts cycle outcomes and renders them in the Prometheus text
// exposition format.
type Metrics struct {
	cycles         atomic.Int64
	skipped        atomic.Int64
	targetsChecked atomic.Int64
	alertsSent     atomic.Int64
	cycleErrors    atomic.Int64
	lastDuration   atomic.Uint64 // float64 bits, seconds
}

func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) observeCycle(s models.CycleSummary) {
	m.cycles.Add(1)
	m.targetsChecked.Add(int64(s.TargetsChecked))
	m.alertsSent.Add(int64(s.AlertsSent))
	m.cycleErrors.Add(int64(s.Errors))
	m.lastDuration.Store(math.Float64bits(s.Duration.Seconds()))
}

func (m *Metrics) observeSkip() { m.skipped.Add(1) }

func (m *Metrics) observeFailure() {
	m.cycles.Add(1)
	m.cycleErrors.Add(1)
}

// Families snapshots the current values.
func (m *Metrics) Families() []*dto.MetricFamily {
	return []*dto.MetricFamily{
		counterFamily("uptimeguard_cycles_total", "Check cycles run, including failed ones.", m.cycles.Load()),
		counterFamily("uptimeguard_cycles_skipped_total", "Cycle triggers rejected because a cycle was in flight.", m.skipped.Load()),
		counterFamily("uptimeguard_targets_checked_total", "Targets reconciled across all cycles.", m.targetsChecked.Load()),
		counterFamily("uptimeguard_alerts_sent_total", "Alerts accepted by at least one channel.", m.alertsSent.Load()),
		counterFamily("uptimeguard_cycle_errors_total", "Per-target task failures and failed cycle loads.", m.cycleErrors.Load()),
		gaugeFamily("uptimeguard_last_cycle_duration_seconds", "Wall time of the most recent completed cycle.",
			math.Float64frombits(m.lastDuration.Load())),
	}
}

// WriteText writes all families in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range m.Families() {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// ContentType is the header value matching WriteText's output.
func (m *Metrics) ContentType() string {
	return string(expfmt.NewFormat(expfmt.TypeTextPlain))
}

func counterFamily(name, help string, v int64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: ptr(float64(v))}}},
	}
}

func gaugeFamily(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(v)}}},
	}
}

func ptr[T any](v T) *T { return &v }
