package monitor

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultDriftWindow is the sample count used to fix a metric baseline.
	DefaultDriftWindow = 100
	// DefaultDriftThreshold is the relative deviation treated as drift.
	DefaultDriftThreshold = 0.2

	// recentSampleCount is how many trailing samples Analyze averages.
	recentSampleCount = 50
	// reportHistoryLimit caps retained drift reports.
	reportHistoryLimit = 100
)

// DriftStatus classifies an analysis result.
type DriftStatus string

const (
	// DriftNormal means metrics track their baselines.
	DriftNormal DriftStatus = "normal"
	// DriftWarning means the average deviation exceeds the threshold.
	DriftWarning DriftStatus = "warning"
	// DriftCritical means the average deviation exceeds 0.5.
	DriftCritical DriftStatus = "critical"
)

// DriftReport is the outcome of analyzing all tracked metrics at once.
type DriftReport struct {
	Status       DriftStatus        `json:"status"`
	AverageScore float64            `json:"average_score"`
	Scores       map[string]float64 `json:"scores"`
	Timestamp    time.Time          `json:"timestamp"`
}

// metricSeries holds one metric's samples and its fixed baseline.
type metricSeries struct {
	samples     []float64
	baseline    float64
	hasBaseline bool
}

// DriftDetector compares metric samples against baselines frozen from each
// metric's first full window, flagging relative deviations.
type DriftDetector struct {
	window    int
	threshold float64
	logger    *zap.Logger

	mu      sync.Mutex
	series  map[string]*metricSeries
	reports []DriftReport
}

// DriftOption configures a DriftDetector.
type DriftOption func(*DriftDetector)

// WithDriftWindow sets the baseline window size.
func WithDriftWindow(n int) DriftOption {
	return func(d *DriftDetector) {
		if n > 0 {
			d.window = n
		}
	}
}

// WithDriftThreshold sets the deviation treated as drift.
func WithDriftThreshold(v float64) DriftOption {
	return func(d *DriftDetector) {
		if v > 0 {
			d.threshold = v
		}
	}
}

// WithDriftLogger sets the detector logger.
func WithDriftLogger(logger *zap.Logger) DriftOption {
	return func(d *DriftDetector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDriftDetector creates a detector with default window and threshold.
func NewDriftDetector(opts ...DriftOption) *DriftDetector {
	d := &DriftDetector{
		window:    DefaultDriftWindow,
		threshold: DefaultDriftThreshold,
		logger:    zap.NewNop(),
		series:    make(map[string]*metricSeries),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Record appends a metric sample. The buffer is trimmed to the trailing
// window once it grows past twice the window; the baseline, once fixed from
// the first full window, is never recomputed.
func (d *DriftDetector) Record(metric string, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.seriesLocked(metric)
	s.samples = append(s.samples, value)
	if !s.hasBaseline && len(s.samples) >= d.window {
		s.baseline = mean(s.samples[:d.window])
		s.hasBaseline = true
	}
	if len(s.samples) > 2*d.window {
		s.samples = s.samples[len(s.samples)-d.window:]
	}
}

func (d *DriftDetector) seriesLocked(metric string) *metricSeries {
	s, ok := d.series[metric]
	if !ok {
		s = &metricSeries{}
		d.series[metric] = s
	}
	return s
}

// Detect compares a metric's latest sample against its baseline. Returns
// (false, 0) when the baseline is not yet established. A zero baseline
// scores 1.0 for any nonzero current value.
func (d *DriftDetector) Detect(metric string) (bool, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.series[metric]
	if !ok || !s.hasBaseline || len(s.samples) == 0 {
		return false, 0
	}
	score := driftScore(s.samples[len(s.samples)-1], s.baseline)
	return score > d.threshold, score
}

func driftScore(current, baseline float64) float64 {
	if baseline == 0 {
		if current == 0 {
			return 0
		}
		return 1.0
	}
	return math.Abs(current-baseline) / math.Abs(baseline)
}

// Baseline returns a metric's fixed baseline, if established.
func (d *DriftDetector) Baseline(metric string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.series[metric]
	if !ok || !s.hasBaseline {
		return 0, false
	}
	return s.baseline, true
}

// Analyze scores every baselined metric against the mean of its recent
// samples and classifies the overall deviation. The report is appended to a
// bounded history.
func (d *DriftDetector) Analyze() DriftReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	report := DriftReport{
		Scores:    make(map[string]float64),
		Timestamp: time.Now(),
	}
	total := 0.0
	for metric, s := range d.series {
		if !s.hasBaseline || len(s.samples) == 0 {
			continue
		}
		recent := s.samples
		if len(recent) > recentSampleCount {
			recent = recent[len(recent)-recentSampleCount:]
		}
		score := driftScore(mean(recent), s.baseline)
		report.Scores[metric] = score
		total += score
	}
	if len(report.Scores) > 0 {
		report.AverageScore = total / float64(len(report.Scores))
	}

	switch {
	case report.AverageScore > 0.5:
		report.Status = DriftCritical
	case report.AverageScore > d.threshold:
		report.Status = DriftWarning
	default:
		report.Status = DriftNormal
	}

	d.reports = append(d.reports, report)
	if len(d.reports) > reportHistoryLimit {
		d.reports = d.reports[len(d.reports)-reportHistoryLimit:]
	}
	if report.Status != DriftNormal {
		d.logger.Warn("metric drift detected",
			zap.String("status", string(report.Status)),
			zap.Float64("average_score", report.AverageScore))
	}
	return report
}

// Reports returns the bounded report history, oldest first.
func (d *DriftDetector) Reports() []DriftReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DriftReport, len(d.reports))
	copy(out, d.reports)
	return out
}
