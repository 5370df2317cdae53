package daemon

import (
	"sync"
	"testing"
	"time"

	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

func TestTimeSeriesRecorder_GetRecordsIn(t *testing.T) {
	type fields struct {
		MaxRecordCount int
		Records        []time.Time
		Interval       time.Duration
	}
	type args struct {
		last time.Duration
	}
	tests := []struct {
		name   string
		fields fields
		args   args
		want   int
	}{
		{
			name: "test noncontinuous records",
			fields: fields{
				MaxRecordCount: 10,
				Records: []time.Time{
					time.Now().Add(-time.Second * 31).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 20).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 10).Add(-10 * time.Millisecond),
				},
				Interval: time.Second * 10,
			},
			args: args{
				last: time.Second * 40,
			},
			want: 2,
		},
		{
			name: "test continuous records",
			fields: fields{
				MaxRecordCount: 10,
				Records: []time.Time{
					time.Now().Add(-time.Second * 70).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 60).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 40).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 30).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 20).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 10).Add(-10 * time.Millisecond),
				},
				Interval: time.Second * 10,
			},
			args: args{
				last: time.Second * 50,
			},
			want: 4,
		},
		{
			name: "test stale last record",
			fields: fields{
				MaxRecordCount: 10,
				Records: []time.Time{
					time.Now().Add(-time.Second * 70).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 60).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 40).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 30).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 20).Add(-10 * time.Millisecond),
					time.Now().Add(-time.Second * 15).Add(-10 * time.Millisecond),
				},
				Interval: time.Second * 10,
			},
			args: args{
				last: time.Second * 50,
			},
			want: 0,
		},
		{
			name: "test one second polling",
			fields: fields{
				MaxRecordCount: 60,
				Records: []time.Time{
					time.Now().Add(-time.Millisecond * 3500),
					time.Now().Add(-time.Millisecond * 2500),
					time.Now().Add(-time.Millisecond * 1500),
					time.Now().Add(-time.Millisecond * 500),
				},
				Interval: time.Second,
			},
			args: args{
				last: time.Second * 10,
			},
			want: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &TimeSeriesRecorder{
				MaxRecordCount: tt.fields.MaxRecordCount,
				Records:        tt.fields.Records,
				Interval:       tt.fields.Interval,
				mu:             &sync.Mutex{},
			}
			if got := r.GetRecordsIn(tt.args.last); got != tt.want {
				t.Errorf("GetRecordsIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeSeriesRecorderCapacity(t *testing.T) {
	r := NewTimeSeriesRecorder(3, time.Second)
	base := time.Now()
	for i := 0; i < 5; i++ {
		r.AddRecord(base.Add(time.Duration(i) * time.Second))
	}

	records := r.GetRecords()
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if !r.GetLastRecord().Equal(base.Add(4 * time.Second).Round(0)) {
		t.Errorf("GetLastRecord() = %v", r.GetLastRecord())
	}

	r.SetInterval(time.Second)
	if len(r.GetRecords()) != 3 {
		t.Errorf("SetInterval with same interval cleared records")
	}
	r.SetInterval(2 * time.Second)
	if len(r.GetRecords()) != 0 {
		t.Errorf("SetInterval did not clear records")
	}
}

func TestScheduledCycleSkipsWhenBusy(t *testing.T) {
	mem := setupTestDaemon(t)
	mem.Set(pv.FELSetEnergy, 530)

	before := cycleCount.Load()

	cycleLock.Lock()
	err := scheduledCycle()
	cycleLock.Unlock()
	if err != nil {
		t.Fatalf("scheduledCycle() error = %v", err)
	}
	if got := cycleCount.Load(); got != before {
		t.Fatalf("busy cycle ran anyway: count %d -> %d", before, got)
	}

	if err := scheduledCycle(); err != nil {
		t.Fatalf("scheduledCycle() error = %v", err)
	}
	if got := cycleCount.Load(); got != before+1 {
		t.Fatalf("cycle count = %d, want %d", got, before+1)
	}
	if v, ok := outputs.Value(pv.FELEnergy); !ok || v != 530 {
		t.Errorf("FEL_E = %v, %v", v, ok)
	}
}

func TestRunCycleSinkErrorDoesNotAbort(t *testing.T) {
	mem := setupTestDaemon(t)
	mem.Set(pv.FELSetEnergy, 400)
	sinks = append([]publish.Sink{failingSink{}}, sinks...)

	res, err := forcedCycle()
	if err != nil {
		t.Fatalf("forcedCycle() error = %v", err)
	}
	if v, ok := res.Value(pv.FELEnergy); !ok || v != 400 {
		t.Errorf("FEL_E = %v, %v", v, ok)
	}
	if v, ok := outputs.Value(pv.FELEnergy); !ok || v != 400 {
		t.Errorf("memory sink missed the cycle: %v, %v", v, ok)
	}
}

func TestMissedCyclesFollowsCronSchedule(t *testing.T) {
	setupTestDaemon(t)

	setPollPeriod("*/5 * * * * *")
	if got := cycleRecorder.GetInterval(); got != 5*time.Second {
		t.Fatalf("recorder interval = %v, want 5s", got)
	}
	if got := cycleTimeout(); got != 5*time.Second {
		t.Errorf("cycleTimeout() = %v, want 5s", got)
	}

	now := time.Now()
	for i := 12; i >= 0; i-- {
		cycleRecorder.AddRecord(now.Add(-time.Duration(i)*5*time.Second - 100*time.Millisecond))
	}
	if missed, fields := missedCycles(); missed {
		t.Errorf("on-time cycles reported as missed: %v", fields)
	}
}

func TestMissedCyclesIrregularSchedule(t *testing.T) {
	setupTestDaemon(t)

	setPollPeriod("0,1 * * * * *")
	if got := cycleRecorder.GetInterval(); got != 0 {
		t.Fatalf("recorder interval = %v, want 0 for an irregular schedule", got)
	}
	if got := cycleTimeout(); got != time.Second {
		t.Errorf("cycleTimeout() = %v, want 1s", got)
	}

	now := time.Now()
	for i := 5; i >= 0; i-- {
		cycleRecorder.AddRecord(now.Add(-time.Duration(i) * time.Minute))
	}
	if missed, _ := missedCycles(); missed {
		t.Errorf("irregular schedule reported missed cycles")
	}
}
