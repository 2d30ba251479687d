// Package metrics tracks adapter throughput and basic host health. The
// Recorder participates in the dispatch fan-out as a synchronous sink, so
// its counters always match what consumers actually received.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/tapwire/agent/pkg/input"
)

// Recorder counts adapted events. All methods are safe for concurrent use.
type Recorder struct {
	motionEvents  atomic.Uint64
	suppressed    atomic.Uint64
	touchBatches  atomic.Uint64
	touchContacts atomic.Uint64
	pointerEvents atomic.Uint64
}

// NewRecorder returns a zeroed recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordMotion notes one handled native event and the suppression answer
// returned to the platform. Called by event sources after the adapter runs.
func (r *Recorder) RecordMotion(suppressed bool) {
	r.motionEvents.Add(1)
	if suppressed {
		r.suppressed.Add(1)
	}
}

func (r *Recorder) countBatch(touches []*input.TouchEvent) {
	r.touchBatches.Add(1)
	r.touchContacts.Add(uint64(len(touches)))
}

func (r *Recorder) OnTouchStart(touches []*input.TouchEvent) { r.countBatch(touches) }
func (r *Recorder) OnTouchEnd(touches []*input.TouchEvent)   { r.countBatch(touches) }
func (r *Recorder) OnTouchMove(touches []*input.TouchEvent)  { r.countBatch(touches) }
func (r *Recorder) OnPointerStart(*input.PointerEvent)       { r.pointerEvents.Add(1) }
func (r *Recorder) OnPointerEnd(*input.PointerEvent)         { r.pointerEvents.Add(1) }
func (r *Recorder) OnPointerDrag(*input.PointerEvent)        { r.pointerEvents.Add(1) }

// Snapshot is a point-in-time view of the counters plus host utilization,
// shipped to the controller in status frames.
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	MotionEvents  uint64    `json:"motionEvents"`
	Suppressed    uint64    `json:"suppressed"`
	TouchBatches  uint64    `json:"touchBatches"`
	TouchContacts uint64    `json:"touchContacts"`
	PointerEvents uint64    `json:"pointerEvents"`
	QueueDropped  uint64    `json:"queueDropped"`
	InvalidIndex  uint64    `json:"invalidIndexDrops"`

	CPUPct     float64 `json:"cpuPct"`
	MemUsedPct float64 `json:"memUsedPct"`
	Load1      float64 `json:"load1,omitempty"`
}

// DroppedFunc reports a drop counter owned elsewhere, such as the dispatch
// loop's queue rejects or the adapter's invalid-index drops.
type DroppedFunc func() uint64

// Reporter periodically snapshots a Recorder, logging the numbers and
// handing them to an optional publish callback.
type Reporter struct {
	recorder     *Recorder
	queueDropped DroppedFunc
	invalidIndex DroppedFunc
	interval     time.Duration
	logger       *zap.Logger
	publish      func(Snapshot)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReporter creates a reporter. queueDropped, invalidIndex and publish may
// be nil.
func NewReporter(rec *Recorder, queueDropped, invalidIndex DroppedFunc, interval time.Duration, publish func(Snapshot), logger *zap.Logger) *Reporter {
	return &Reporter{
		recorder:     rec,
		queueDropped: queueDropped,
		invalidIndex: invalidIndex,
		interval:     interval,
		logger:       logger.Named("metrics"),
		publish:      publish,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the reporting loop.
func (r *Reporter) Start() {
	go r.run()
}

// Stop halts the loop and waits for it to finish.
func (r *Reporter) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Reporter) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			snap := r.Snapshot()
			r.logger.Info("adapter throughput",
				zap.Uint64("motionEvents", snap.MotionEvents),
				zap.Uint64("suppressed", snap.Suppressed),
				zap.Uint64("touchBatches", snap.TouchBatches),
				zap.Uint64("touchContacts", snap.TouchContacts),
				zap.Uint64("pointerEvents", snap.PointerEvents),
				zap.Uint64("queueDropped", snap.QueueDropped),
				zap.Uint64("invalidIndexDrops", snap.InvalidIndex),
				zap.Float64("cpuPct", snap.CPUPct),
				zap.Float64("memUsedPct", snap.MemUsedPct))
			if r.publish != nil {
				r.publish(snap)
			}
		}
	}
}

// Snapshot collects the current counters and host utilization. Host metric
// failures degrade to zero values; they are never fatal.
func (r *Reporter) Snapshot() Snapshot {
	snap := Snapshot{
		Timestamp:     time.Now().UTC(),
		MotionEvents:  r.recorder.motionEvents.Load(),
		Suppressed:    r.recorder.suppressed.Load(),
		TouchBatches:  r.recorder.touchBatches.Load(),
		TouchContacts: r.recorder.touchContacts.Load(),
		PointerEvents: r.recorder.pointerEvents.Load(),
	}
	if r.queueDropped != nil {
		snap.QueueDropped = r.queueDropped()
	}
	if r.invalidIndex != nil {
		snap.InvalidIndex = r.invalidIndex()
	}

	if pcts, err := cpu.Percent(0, false); err != nil {
		r.logger.Warn("cpu utilization unavailable", zap.Error(err))
	} else if len(pcts) > 0 {
		snap.CPUPct = pcts[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		r.logger.Warn("memory utilization unavailable", zap.Error(err))
	} else {
		snap.MemUsedPct = vm.UsedPercent
	}

	if avg, err := load.Avg(); err == nil {
		snap.Load1 = avg.Load1
	}

	return snap
}
