// Package report periodically logs traffic statistics.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/joeycumines/go-udpflood/loop"
	"github.com/joeycumines/logiface"
)

// DefaultInterval is the default period between reports.
const DefaultInterval = time.Second

type (
	// Source provides cumulative totals, e.g. [*flood.Stats].
	Source interface {
		Snapshot() (bytes, ops uint64)
	}

	// Reporter logs the traffic recorded by a Source, once per interval, on
	// a loop.
	Reporter struct {
		source    Source
		logger    *logiface.Logger[logiface.Event]
		timer     *loop.Timer
		bytesRate ewma.MovingAverage
		opsRate   ewma.MovingAverage
		now       func() time.Time
		start     time.Time
		last      time.Time
		interval  time.Duration
		lastBytes uint64
		lastOps   uint64
		raw       bool
	}

	// Sample is a single report.
	Sample struct {
		// Elapsed is the time since the reporter started.
		Elapsed time.Duration
		// Bytes and Ops are per second, since the previous sample.
		Bytes uint64
		Ops   uint64
		// AvgBytes and AvgOps are exponentially weighted moving averages of
		// Bytes and Ops.
		AvgBytes   float64
		AvgOps     float64
		TotalBytes uint64
		TotalOps   uint64
	}

	// Option configures a Reporter.
	Option func(r *Reporter)
)

// WithLogger sets the logger that reports are written to, at info level.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// WithRaw disables unit conversion, reporting plain milliseconds, bytes,
// and operations.
func WithRaw(raw bool) Option {
	return func(r *Reporter) {
		r.raw = raw
	}
}

// WithInterval overrides [DefaultInterval].
func WithInterval(interval time.Duration) Option {
	return func(r *Reporter) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// New returns a reporter for source, which must be started on a loop.
func New(source Source, opts ...Option) (*Reporter, error) {
	if source == nil {
		return nil, errors.New(`report: nil source`)
	}
	r := &Reporter{
		source:    source,
		bytesRate: ewma.NewMovingAverage(),
		opsRate:   ewma.NewMovingAverage(),
		now:       time.Now,
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Start begins reporting, from a timer handle bound to l. It must be called
// on the loop's goroutine, at most once.
func (r *Reporter) Start(l *loop.Loop) error {
	if r.timer != nil {
		return errors.New(`report: already started`)
	}
	timer, err := loop.NewTimer(l, nil)
	if err != nil {
		return err
	}
	r.timer = timer
	r.start = r.now()
	r.last = r.start
	r.lastBytes, r.lastOps = r.source.Snapshot()
	return r.timer.Start(r.interval, r.onTick)
}

// Close stops reporting, closing the timer handle. It must be called on the
// loop's goroutine.
func (r *Reporter) Close() {
	if r.timer != nil {
		r.timer.Close(nil)
	}
}

func (r *Reporter) onTick(t *loop.Timer) {
	r.Log(r.Sample())
	if err := t.Start(r.interval, r.onTick); err != nil {
		r.logger.Warning().Err(err).Log(`stats timer stopped`)
	}
}

// Sample computes the next report, relative to the previous one.
func (r *Reporter) Sample() Sample {
	now := r.now()
	totalBytes, totalOps := r.source.Snapshot()

	s := Sample{
		Elapsed:    now.Sub(r.start),
		TotalBytes: totalBytes,
		TotalOps:   totalOps,
	}

	if dt := now.Sub(r.last).Seconds(); dt > 0 {
		s.Bytes = uint64(float64(totalBytes-r.lastBytes)/dt + 0.5)
		s.Ops = uint64(float64(totalOps-r.lastOps)/dt + 0.5)
	}
	r.bytesRate.Add(float64(s.Bytes))
	r.opsRate.Add(float64(s.Ops))
	s.AvgBytes = r.bytesRate.Value()
	s.AvgOps = r.opsRate.Value()

	r.last = now
	r.lastBytes = totalBytes
	r.lastOps = totalOps

	return s
}

// Log writes s at info level.
func (r *Reporter) Log(s Sample) {
	b := r.logger.Info()
	if !b.Enabled() {
		return
	}
	b.Int64(`elapsed_ms`, s.Elapsed.Milliseconds()).
		Uint64(`bytes_per_second`, s.Bytes).
		Uint64(`ops_per_second`, s.Ops).
		Float64(`avg_bytes_per_second`, s.AvgBytes).
		Float64(`avg_ops_per_second`, s.AvgOps).
		Uint64(`total_bytes`, s.TotalBytes).
		Uint64(`total_ops`, s.TotalOps).
		Log(s.Format(r.raw))
}

// Format renders s as a single line, with units unless raw.
func (s Sample) Format(raw bool) string {
	if raw {
		return fmt.Sprintf(
			`Elapsed %d ms, %d bytes/s and %d op/s, total %d bytes and %d operations`,
			s.Elapsed.Milliseconds(), s.Bytes, s.Ops, s.TotalBytes, s.TotalOps,
		)
	}
	return fmt.Sprintf(
		`Elapsed %s, %s/s and %s/s, total %s and %s`,
		HumanizeDuration(s.Elapsed),
		HumanizeBytes(s.Bytes),
		HumanizeOperations(s.Ops),
		HumanizeBytes(s.TotalBytes),
		HumanizeOperations(s.TotalOps),
	)
}
