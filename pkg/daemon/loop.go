package daemon

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/pv"
	"github.com/pcdshub/rixcalc/pkg/signals"
)

// missedCycleWindow is how many poll intervals checkMissedCycles looks back.
const missedCycleWindow = 10

var (
	// cycleLock serialises scheduled and forced cycles.
	cycleLock     = &sync.Mutex{}
	cycleRecorder = NewTimeSeriesRecorder(60, time.Second)
	cycleCount    atomic.Uint64
	// cyclePeriod is the shortest gap between poll activations.
	cyclePeriod atomic.Int64

	snapshotMu   = &sync.RWMutex{}
	lastSnapshot signals.Snapshot

	errCalibrationNotLoaded = errors.New("calibration not loaded")
)

// TimeSeriesRecorder records the start times of the last N poll cycles.
type TimeSeriesRecorder struct {
	MaxRecordCount int
	Records        []time.Time
	// Interval is the expected time between two records.
	Interval time.Duration
	mu       *sync.Mutex
}

// NewTimeSeriesRecorder returns a new TimeSeriesRecorder.
func NewTimeSeriesRecorder(maxRecordCount int, interval time.Duration) *TimeSeriesRecorder {
	return &TimeSeriesRecorder{
		MaxRecordCount: maxRecordCount,
		Records:        make([]time.Time, 0),
		Interval:       interval,
		mu:             &sync.Mutex{},
	}
}

// AddRecordNow adds a new record with the current time.
func (r *TimeSeriesRecorder) AddRecordNow() {
	r.AddRecord(time.Now())
}

// AddRecord adds a new record.
func (r *TimeSeriesRecorder) AddRecord(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading.
	t = t.Round(0)

	if len(r.Records) >= r.MaxRecordCount {
		r.Records = r.Records[1:]
	}
	r.Records = append(r.Records, t)
}

// SetInterval changes the expected interval and clears the records, which
// were taken at the old rate.
func (r *TimeSeriesRecorder) SetInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d == r.Interval {
		return
	}
	r.Interval = d
	r.Records = make([]time.Time, 0)
}

// GetInterval returns the expected interval.
func (r *TimeSeriesRecorder) GetInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Interval
}

// GetRecords returns a copy of the records.
func (r *TimeSeriesRecorder) GetRecords() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Time(nil), r.Records...)
}

// GetRecordsIn returns the number of continuous records in the last duration.
func (r *TimeSeriesRecorder) GetRecordsIn(last time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	gap := r.Interval + time.Second

	// The last record must be within the last duration.
	if len(r.Records) > 0 && time.Since(r.Records[len(r.Records)-1]) >= gap {
		return 0
	}

	// Find continuous records from the end of the list.
	// Continuous records are defined as the time difference between
	// two adjacent records is less than Interval+1 second.
	count := 0
	for i := len(r.Records) - 1; i >= 0; i-- {
		record := r.Records[i]
		if time.Since(record) > last {
			break
		}

		theRecordAfter := record
		if i+1 < len(r.Records) {
			theRecordAfter = r.Records[i+1]
		}

		if theRecordAfter.Sub(record) >= gap {
			break
		}
		count++
	}

	return count
}

// GetLastRecords returns the records in the last duration, newest first.
func (r *TimeSeriesRecorder) GetLastRecords(last time.Duration) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Records) == 0 {
		return nil
	}

	var records []time.Time
	for i := len(r.Records) - 1; i >= 0; i-- {
		record := r.Records[i]
		if time.Since(record) > last {
			break
		}
		records = append(records, record)
	}

	return records
}

// GetLastRecord returns the last record.
func (r *TimeSeriesRecorder) GetLastRecord() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Records) == 0 {
		return time.Time{}
	}

	return r.Records[len(r.Records)-1]
}

func formatRelativeTimes(times []time.Time) []string {
	var timesString []string
	for _, t := range times {
		timesString = append(timesString, time.Since(t).Round(time.Millisecond).String())
	}
	return timesString
}

// missedCycles reports whether fewer cycles than expected ran recently.
// Nothing is reported until the daemon has been running for a full window.
// An irregular schedule has no expected count, so the check is off.
func missedCycles() (bool, logrus.Fields) {
	interval := cycleRecorder.GetInterval()
	if interval <= 0 {
		return false, nil
	}
	window := missedCycleWindow * interval
	records := cycleRecorder.GetRecords()
	if len(records) == 0 || time.Since(records[0]) < window {
		return false, nil
	}

	count := cycleRecorder.GetRecordsIn(window)
	expected := missedCycleWindow
	minCount := expected - 1

	return count < minCount, logrus.Fields{
		"cycleCount":         count,
		"expectedCycleCount": expected,
		"minCycleCount":      minCount,
		"recentRecords":      formatRelativeTimes(cycleRecorder.GetLastRecords(window)),
	}
}

func checkMissedCycles() bool {
	missed, fields := missedCycles()
	if missed {
		logrus.WithFields(fields).Info("possibly missed poll cycles")
	}
	return missed
}

// scheduledCycle is the scheduler task. A cycle still running when the next
// one is due makes the new one a no-op.
func scheduledCycle() error {
	if !cycleLock.TryLock() {
		logrus.Warn("previous cycle still running, skipping this one")
		return nil
	}
	defer cycleLock.Unlock()

	checkMissedCycles()
	cycleRecorder.AddRecordNow()

	_, err := runCycleLocked()
	return err
}

// forcedCycle runs a cycle now. It waits for a running cycle to finish
// first. It is mainly called by the HTTP APIs.
func forcedCycle() (*beamline.Result, error) {
	cycleLock.Lock()
	defer cycleLock.Unlock()

	return runCycleLocked()
}

// setPollPeriod derives the poll period from the schedule expression spec.
// Irregular schedules disable the missed-cycle check.
func setPollPeriod(spec string) {
	d, regular, err := specInterval(spec, time.Now())
	if err != nil {
		logrus.Errorf("failed to derive poll period: %v", err)
		return
	}
	cyclePeriod.Store(int64(d))
	if !regular {
		d = 0
	}
	cycleRecorder.SetInterval(d)
}

// cycleTimeout bounds the I/O of one cycle.
func cycleTimeout() time.Duration {
	d := time.Duration(cyclePeriod.Load())
	if d < time.Second {
		d = time.Second
	}
	return d
}

func runCycleLocked() (*beamline.Result, error) {
	c := currentCalculator()
	if c == nil {
		return nil, errCalibrationNotLoaded
	}

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout())
	defer cancel()

	snap, err := source.Read(ctx, pv.Inputs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read inputs")
	}
	setLastSnapshot(snap)

	res := c.Compute(snap)
	cycleCount.Add(1)
	printStatus(res)

	for _, s := range sinks {
		if err := s.Publish(ctx, res); err != nil {
			logrus.WithFields(logrus.Fields{
				"sink":  s.Name(),
				"cycle": res.ID,
			}).Errorf("failed to publish cycle: %v", err)
		}
	}

	return res, nil
}

func setLastSnapshot(s signals.Snapshot) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	lastSnapshot = s
}

func getLastSnapshot() signals.Snapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return lastSnapshot
}

var lastPrintTime time.Time

type groupStatus struct {
	status beamline.Status
	reason string
}

var lastStatus map[beamline.Group]groupStatus

func printStatus(res *beamline.Result) {
	currentStatus := make(map[beamline.Group]groupStatus, len(res.Reports))
	fields := logrus.Fields{
		"cycle":   res.ID,
		"outputs": len(res.Outputs),
	}
	for _, rep := range res.Reports {
		currentStatus[rep.Group] = groupStatus{status: rep.Status, reason: rep.Reason}
		fields[string(rep.Group)] = rep.Status
	}

	defer func() { lastPrintTime = time.Now() }()

	// Skip printing if the last print was less than one interval ago and everything is the same.
	if time.Since(lastPrintTime) < cycleRecorder.GetInterval()+time.Second && reflect.DeepEqual(lastStatus, currentStatus) {
		logrus.WithFields(fields).Trace("cycle status")
		return
	}

	for _, rep := range res.Failed() {
		if prev, ok := lastStatus[rep.Group]; ok && prev.status == beamline.StatusFailed && prev.reason == rep.Reason {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"group": rep.Group,
			"cycle": res.ID,
		}).Warnf("computation failed: %s", rep.Reason)
	}

	logrus.WithFields(fields).Debug("cycle status")

	lastStatus = currentStatus
}
