package metrics

import "time"

// LogMetrics instruments a position log manager. A nil *LogMetrics is valid
// and records nothing.
type LogMetrics struct {
	Recorded *Counter
	Replaced *Counter
	Deleted  *Counter

	Saves        *Counter
	SaveFailures *Counter
	Loads        *Counter
	LoadFailures *Counter
	Warnings     *Counter

	Positions *Gauge
	Desktops  *Gauge

	SaveDuration *Histogram
	LoadDuration *Histogram
	FileBytes    *Histogram
}

// NewLogMetrics registers the log manager metrics in r.
func NewLogMetrics(r *Registry) *LogMetrics {
	return &LogMetrics{
		Recorded: r.Counter("positions_recorded_total", "Positions recorded"),
		Replaced: r.Counter("positions_replaced_total", "Positions replaced"),
		Deleted:  r.Counter("positions_deleted_total", "Positions deleted"),

		Saves:        r.Counter("saves_total", "Successful log saves"),
		SaveFailures: r.Counter("save_failures_total", "Failed or cancelled log saves"),
		Loads:        r.Counter("loads_total", "Successful log loads"),
		LoadFailures: r.Counter("load_failures_total", "Failed or cancelled log loads"),
		Warnings:     r.Counter("load_warnings_total", "Elements skipped while loading"),

		Positions: r.Gauge("positions", "Positions in the open log"),
		Desktops:  r.Gauge("desktops", "Desktop snapshots in the open log"),

		SaveDuration: r.Histogram("save_duration_seconds", "Time to encode and write a log", DurationBuckets),
		LoadDuration: r.Histogram("load_duration_seconds", "Time to read and decode a log", DurationBuckets),
		FileBytes:    r.Histogram("file_bytes", "Size of saved and loaded log files", SizeBuckets),
	}
}

// PositionRecorded counts a recorded position.
func (m *LogMetrics) PositionRecorded() {
	if m != nil {
		m.Recorded.Inc()
	}
}

// PositionReplaced counts a replaced position.
func (m *LogMetrics) PositionReplaced() {
	if m != nil {
		m.Replaced.Inc()
	}
}

// PositionsDeleted counts n deleted positions.
func (m *LogMetrics) PositionsDeleted(n int) {
	if m != nil && n > 0 {
		m.Deleted.Add(uint64(n))
	}
}

// SetSize updates the open log's position and desktop gauges.
func (m *LogMetrics) SetSize(positions, desktops int) {
	if m == nil {
		return
	}
	m.Positions.Set(int64(positions))
	m.Desktops.Set(int64(desktops))
}

// ObserveSave records the outcome of one save started at start.
func (m *LogMetrics) ObserveSave(start time.Time, bytes int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SaveFailures.Inc()
		return
	}
	m.Saves.Inc()
	m.SaveDuration.Since(start)
	m.FileBytes.Observe(float64(bytes))
}

// ObserveLoad records the outcome of one load started at start.
func (m *LogMetrics) ObserveLoad(start time.Time, bytes, warnings int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LoadFailures.Inc()
		return
	}
	m.Loads.Inc()
	m.Warnings.Add(uint64(warnings))
	m.LoadDuration.Since(start)
	m.FileBytes.Observe(float64(bytes))
}
