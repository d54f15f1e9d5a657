// Package ingress accepts single and batched pings, enforces size caps,
// and runs an async worker pool with caller-runs backpressure: a
// submission is never dropped, only ever executed synchronously by the
// submitting goroutine when both the queue and the overflow workers are
// saturated.
package ingress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"geofence-service/internal/coordinator"
	"geofence-service/internal/errs"
)

// PingRequest is the wire-agnostic representation of one accepted ping.
type PingRequest struct {
	VehicleID uuid.UUID
	TripID    uuid.UUID
	Lat       float64
	Lon       float64
	SpeedKmh  float64
	Timestamp time.Time
}

// BatchResult reports what happened to a submitted batch.
type BatchResult struct {
	Total     int
	Processed int
	Failed    int
}

type job struct {
	ctx context.Context
	req PingRequest
}

// Dispatcher is the single entry point for the sync, async, and batch
// ingestion paths.
type Dispatcher struct {
	coordinator  *coordinator.Coordinator
	log          zerolog.Logger
	maxBatchSize int

	queue    chan job
	wg       sync.WaitGroup
	quit     chan struct{}
	overflow chan struct{}
}

// New builds a worker pool with coreSize permanent workers draining queue.
// When the queue is saturated, up to (maxSize-coreSize) additional
// overflow workers are spun up on demand, each exiting once it has been
// idle for a short period; if the overflow pool is also saturated the
// submitting goroutine runs the job itself (caller-runs backpressure).
func New(c *coordinator.Coordinator, log zerolog.Logger, coreSize, maxSize, queueSize, maxBatchSize int) *Dispatcher {
	if maxSize < coreSize {
		maxSize = coreSize
	}
	d := &Dispatcher{
		coordinator:  c,
		log:          log,
		maxBatchSize: maxBatchSize,
		queue:        make(chan job, queueSize),
		quit:         make(chan struct{}),
		overflow:     make(chan struct{}, maxSize-coreSize),
	}
	for i := 0; i < coreSize; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case j := <-d.queue:
			d.runSync(j.ctx, j.req)
		case <-d.quit:
			return
		}
	}
}

// Shutdown stops the worker pool, then runs any jobs still left on the
// queue on the calling goroutine before returning. In-flight caller-runs
// submissions are unaffected since they never touch the queue.
func (d *Dispatcher) Shutdown() {
	close(d.quit)
	d.wg.Wait()
	for {
		select {
		case j := <-d.queue:
			d.runSync(j.ctx, j.req)
		default:
			return
		}
	}
}

// Sync processes a ping synchronously and returns only once the trip
// mutation, audit write, and post-commit publishes have all been
// attempted.
func (d *Dispatcher) Sync(ctx context.Context, req PingRequest) error {
	return d.runSync(ctx, req)
}

func (d *Dispatcher) runSync(ctx context.Context, req PingRequest) error {
	_, err := d.coordinator.ProcessPing(ctx, coordinator.Ping{
		VehicleID: req.VehicleID,
		TripID:    req.TripID,
		Lat:       req.Lat,
		Lon:       req.Lon,
		SpeedKmh:  req.SpeedKmh,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		d.log.Error().Err(err).Str("trip_id", req.TripID.String()).Msg("ping processing failed")
	}
	return err
}

// overflowIdleTimeout bounds how long a spun-up overflow worker waits on
// the queue for more work before exiting and releasing its slot back to
// the maxSize ceiling.
const overflowIdleTimeout = 5 * time.Second

// Async enqueues the ping onto the bounded work queue. If the queue is
// saturated it tries to grow the pool with a temporary overflow worker, up
// to maxSize; if the overflow pool is also saturated the submitting
// goroutine executes the work itself instead of dropping or erroring:
// caller-runs backpressure.
func (d *Dispatcher) Async(ctx context.Context, req PingRequest) {
	select {
	case d.queue <- job{ctx: ctx, req: req}:
		return
	default:
	}

	select {
	case d.overflow <- struct{}{}:
		d.log.Warn().Str("trip_id", req.TripID.String()).Msg("async queue saturated, growing pool with overflow worker")
		d.wg.Add(1)
		go d.overflowWorker(job{ctx: ctx, req: req})
	default:
		d.log.Warn().Str("trip_id", req.TripID.String()).Msg("overflow pool saturated, running inline")
		d.runSync(ctx, req)
	}
}

// overflowWorker runs j immediately, then keeps draining the queue like a
// core worker until it has been idle for overflowIdleTimeout, at which
// point it exits and frees its slot.
func (d *Dispatcher) overflowWorker(j job) {
	defer d.wg.Done()
	defer func() { <-d.overflow }()

	d.runSync(j.ctx, j.req)

	idle := time.NewTimer(overflowIdleTimeout)
	defer idle.Stop()
	for {
		select {
		case next := <-d.queue:
			d.runSync(next.ctx, next.req)
			idle.Reset(overflowIdleTimeout)
		case <-idle.C:
			return
		case <-d.quit:
			return
		}
	}
}

// Batch rejects empty batches and batches over the configured maximum,
// then applies sync to each ping in ascending device-timestamp order,
// continuing past individual failures.
func (d *Dispatcher) Batch(ctx context.Context, reqs []PingRequest) (BatchResult, error) {
	if len(reqs) == 0 {
		return BatchResult{}, errs.New(errs.Validation, "batch must not be empty")
	}
	if len(reqs) > d.maxBatchSize {
		return BatchResult{}, errs.New(errs.BatchTooLarge, "batch exceeds maximum size")
	}

	sorted := make([]PingRequest, len(reqs))
	copy(sorted, reqs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	result := BatchResult{Total: len(sorted)}
	for _, req := range sorted {
		if err := d.runSync(ctx, req); err != nil {
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}
