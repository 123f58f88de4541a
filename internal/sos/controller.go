package sos

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"stadtwache/internal/models"
)

// State of the alert flow. Success and CriticalFailure are terminal.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StatePrimarySend
	StateDegrading
	StateFallbackSend
	StateSuccess
	StateCriticalFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StatePrimarySend:
		return "primary-send"
	case StateDegrading:
		return "degrading"
	case StateFallbackSend:
		return "fallback-send"
	case StateSuccess:
		return "success"
	case StateCriticalFailure:
		return "critical-failure"
	default:
		return "unknown"
	}
}

// ErrInFlight rejects a trigger while a flow is already running. A panic
// button must not spawn parallel broadcasts on a double tap.
var ErrInFlight = errors.New("sos alert already in flight")

// Outcome is the terminal result handed to the Presenter.
type Outcome struct {
	State State            // StateSuccess or StateCriticalFailure
	Kind  models.AlertKind // which payload the backend acknowledged, or AlertFallback on critical failure

	Alert *models.EmergencyAlert // acknowledged alert; on critical failure, the primary alert
	Ack   *models.BroadcastAck

	Location       *models.Location
	LocationStatus string

	PrimaryErr  error
	FallbackErr error
	Queued      bool // primary alert persisted to the offline queue
}

// Queue persists an alert that could not be delivered for later retry.
type Queue interface {
	Enqueue(ctx context.Context, alert *models.EmergencyAlert) error
}

// Controller drives the emergency alert flow:
//
//	Idle → Acquiring → PrimarySend → {Success, Degrading}
//	                   Degrading → FallbackSend → {Success, CriticalFailure}
//
// A failed or absent location never blocks the primary send; it only
// changes the location status. There is exactly one fallback attempt.
// The flow cannot be cancelled once triggered.
type Controller struct {
	acquirer  *Acquirer
	sender    Sender
	presenter Presenter
	queue     Queue
	identity  func() Identity
	now       func() time.Time
	log       *zap.Logger

	inFlight atomic.Bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithQueue enables offline queueing of alerts that exhausted both sends.
func WithQueue(q Queue) ControllerOption {
	return func(c *Controller) { c.queue = q }
}

// WithIdentity supplies the reporting identity, read once per trigger.
func WithIdentity(fn func() Identity) ControllerOption {
	return func(c *Controller) { c.identity = fn }
}

// WithClock replaces the timestamp source.
func WithClock(fn func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = fn }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// NewController wires the flow together.
func NewController(acquirer *Acquirer, sender Sender, presenter Presenter, opts ...ControllerOption) *Controller {
	c := &Controller{
		acquirer:  acquirer,
		sender:    sender,
		presenter: presenter,
		identity:  func() Identity { return Identity{} },
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trigger runs one complete flow and presents the outcome exactly once.
// A second trigger while one is running returns ErrInFlight.
func (c *Controller) Trigger(ctx context.Context) (*Outcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer c.inFlight.Store(false)

	outcome := c.run(ctx)
	c.presenter.Present(outcome)
	return outcome, nil
}

func (c *Controller) run(ctx context.Context) *Outcome {
	id := c.identity()

	// Acquiring. Failure is absorbed into the status string.
	loc, lerr := c.acquirer.Acquire(ctx)
	status := StatusFor(loc, lerr)
	if lerr != nil {
		c.log.Warn("location unavailable", zap.String("status", status), zap.Error(lerr))
	} else {
		c.log.Info("location acquired",
			zap.Float64("lat", loc.Latitude),
			zap.Float64("lon", loc.Longitude),
			zap.Float64("accuracy_m", loc.Accuracy))
	}

	// PrimarySend.
	primary := BuildAlert(models.AlertPrimary, id, loc, status, c.now())
	ack, err := c.sender.Send(ctx, primary)
	if err == nil {
		c.log.Info("emergency broadcast acknowledged", zap.String("broadcast_id", ack.BroadcastID))
		return &Outcome{
			State:          StateSuccess,
			Kind:           models.AlertPrimary,
			Alert:          primary,
			Ack:            ack,
			Location:       loc,
			LocationStatus: status,
		}
	}

	// Degrading → FallbackSend: one reduced-information attempt.
	c.log.Warn("primary emergency send failed, degrading", zap.Error(err))
	fallback := BuildAlert(models.AlertFallback, id, nil, statusUnavailable, c.now())
	fbAck, fbErr := c.sender.Send(ctx, fallback)
	if fbErr == nil {
		c.log.Info("fallback broadcast acknowledged", zap.String("broadcast_id", fbAck.BroadcastID))
		return &Outcome{
			State:          StateSuccess,
			Kind:           models.AlertFallback,
			Alert:          fallback,
			Ack:            fbAck,
			Location:       loc,
			LocationStatus: status,
			PrimaryErr:     err,
		}
	}

	// CriticalFailure. Queue the primary alert, which carries the most
	// information, for redelivery once connectivity returns.
	c.log.Error("fallback emergency send failed", zap.Error(fbErr))
	outcome := &Outcome{
		State:          StateCriticalFailure,
		Kind:           models.AlertFallback,
		Alert:          primary,
		Location:       loc,
		LocationStatus: status,
		PrimaryErr:     err,
		FallbackErr:    fbErr,
	}
	if c.queue != nil {
		if qErr := c.queue.Enqueue(ctx, primary); qErr != nil {
			c.log.Error("could not queue alert for retry", zap.Error(qErr))
		} else {
			outcome.Queued = true
			c.log.Info("alert queued for redelivery")
		}
	}
	return outcome
}
