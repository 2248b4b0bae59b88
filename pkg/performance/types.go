package performance

import "time"

// WebVitals is one Core Web Vitals sample. Durations are milliseconds and
// CLS is unitless. A zero value means the vital was not measured.
type WebVitals struct {
	URL       string    `json:"url,omitempty"`
	LCP       float64   `json:"lcp,omitempty"`
	FID       float64   `json:"fid,omitempty"`
	CLS       float64   `json:"cls,omitempty"`
	FCP       float64   `json:"fcp,omitempty"`
	TTFB      float64   `json:"ttfb,omitempty"`
	INP       float64   `json:"inp,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BundleMetrics describes one build output. Sizes are bytes.
type BundleMetrics struct {
	TotalSize   int64     `json:"totalSize"`
	InitialSize int64     `json:"initialSize"`
	AsyncSize   int64     `json:"asyncSize"`
	ChunkCount  int       `json:"chunkCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// BuildMetrics describes one build run. Duration is milliseconds and
// CacheHitRate is a ratio in [0, 1].
type BuildMetrics struct {
	Duration     float64   `json:"duration"`
	Success      bool      `json:"success"`
	CacheHitRate float64   `json:"cacheHitRate"`
	Timestamp    time.Time `json:"timestamp"`
}

// MeasurementKind identifies which sample a Measurement holds.
type MeasurementKind string

const (
	KindVitals MeasurementKind = "vitals"
	KindBundle MeasurementKind = "bundle"
	KindBuild  MeasurementKind = "build"
)

// Measurement is one entry of the rolling history. Exactly one of the
// sample pointers is set, matching Kind.
type Measurement struct {
	Kind      MeasurementKind `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Vitals    *WebVitals      `json:"vitals,omitempty"`
	Bundle    *BundleMetrics  `json:"bundle,omitempty"`
	Build     *BuildMetrics   `json:"build,omitempty"`
}

// BudgetType selects the bundle dimension a budget limits.
type BudgetType string

const (
	BudgetInitial BudgetType = "initial"
	BudgetTotal   BudgetType = "total"
	BudgetAsync   BudgetType = "async"
	BudgetChunks  BudgetType = "chunks"
)

// Budget limits one bundle dimension. Size limits are KiB, the chunk
// limit is a count.
type Budget struct {
	Type  BudgetType `json:"type"`
	Limit float64    `json:"limit"`
}

// Thresholds are the per-vital limits. Durations are milliseconds, CLS
// is unitless. A zero threshold disables the check for that vital.
type Thresholds struct {
	LCP  float64 `json:"lcp"`
	FID  float64 `json:"fid"`
	CLS  float64 `json:"cls"`
	FCP  float64 `json:"fcp"`
	TTFB float64 `json:"ttfb"`
	INP  float64 `json:"inp"`
}

// AlertType classifies an alert.
type AlertType string

const (
	AlertThresholdExceeded AlertType = "threshold_exceeded"
	AlertBudgetViolation   AlertType = "budget_violation"
	AlertRegression        AlertType = "regression"
	AlertBuildFailure      AlertType = "build_failure"
)

// Severity is the urgency of an alert.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert records a measurement that crossed a threshold, budget or
// baseline.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Direction is the movement of a metric relative to its baseline.
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionDegrading Direction = "degrading"
	DirectionStable    Direction = "stable"
)

// Trend compares the latest value of a metric to the mean of its recent
// samples.
type Trend struct {
	Metric   string    `json:"metric"`
	Current  float64   `json:"current"`
	Baseline float64   `json:"baseline"`
	Change   float64   `json:"change"`
	Samples  int       `json:"samples"`
	Trend    Direction `json:"trend"`
}
