package sos

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
)

type recordingPresenter struct {
	mu       sync.Mutex
	outcomes []*Outcome
}

func (p *recordingPresenter) Present(outcome *Outcome) {
	p.mu.Lock()
	p.outcomes = append(p.outcomes, outcome)
	p.mu.Unlock()
}

type scriptedSender struct {
	mu    sync.Mutex
	sent  []*models.EmergencyAlert
	errs  []error // error per call, nil = ack
	block chan struct{}
}

func (s *scriptedSender) Send(ctx context.Context, alert *models.EmergencyAlert) (*models.BroadcastAck, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	call := len(s.sent)
	s.sent = append(s.sent, alert)
	if call < len(s.errs) && s.errs[call] != nil {
		return nil, s.errs[call]
	}
	return &models.BroadcastAck{
		Success:             true,
		BroadcastID:         "b-1",
		LocationTransmitted: alert.Location != nil,
		LocationStatus:      alert.LocationStatus,
	}, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	alerts  []*models.EmergencyAlert
	failErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, alert *models.EmergencyAlert) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failErr != nil {
		return q.failErr
	}
	q.alerts = append(q.alerts, alert)
	return nil
}

func goodProvider() Provider {
	return ProviderFunc(func(ctx context.Context) (*models.Location, error) {
		return fix(52.402, 7.297, 8), nil
	})
}

func newTestController(p Provider, s Sender, pr Presenter, opts ...ControllerOption) *Controller {
	base := []ControllerOption{
		WithIdentity(func() Identity { return Identity{ID: "u-1", Name: "wagner"} }),
	}
	return NewController(NewAcquirer(p, time.Second), s, pr, append(base, opts...)...)
}

func TestFlowPrimarySuccess(t *testing.T) {
	sender := &scriptedSender{}
	presenter := &recordingPresenter{}
	c := newTestController(goodProvider(), sender, presenter)

	outcome, err := c.Trigger(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, outcome.State)
	assert.Equal(t, models.AlertPrimary, outcome.Kind)
	require.Len(t, sender.sent, 1)
	require.NotNil(t, sender.sent[0].Location)
	assert.Contains(t, outcome.LocationStatus, "52.402")
	require.Len(t, presenter.outcomes, 1)

	var buf bytes.Buffer
	TerminalPresenter{Out: &buf}.Present(outcome)
	assert.Contains(t, buf.String(), "52.402")
	assert.Contains(t, buf.String(), "±8m")
}

func TestFlowPermissionDeniedStillSends(t *testing.T) {
	sender := &scriptedSender{}
	presenter := &recordingPresenter{}
	c := newTestController(DeniedProvider{}, sender, presenter)

	outcome, err := c.Trigger(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, outcome.State)
	assert.Equal(t, models.AlertPrimary, outcome.Kind)
	require.Len(t, sender.sent, 1)
	assert.Nil(t, sender.sent[0].Location)
	assert.Equal(t, "GPS-Berechtigung verweigert", sender.sent[0].LocationStatus)
	assert.Equal(t, models.PriorityCritical, sender.sent[0].Priority)
}

func TestFlowFallbackAfterPrimaryFailure(t *testing.T) {
	sender := &scriptedSender{errs: []error{errors.New("dial tcp: timeout"), nil}}
	presenter := &recordingPresenter{}
	c := newTestController(goodProvider(), sender, presenter)

	outcome, err := c.Trigger(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, outcome.State)
	assert.Equal(t, models.AlertFallback, outcome.Kind)
	require.Len(t, sender.sent, 2, "exactly one fallback attempt")
	assert.Equal(t, models.AlertFallback, sender.sent[1].Type)
	assert.Nil(t, sender.sent[1].Location)
	assert.Error(t, outcome.PrimaryErr)

	var buf bytes.Buffer
	TerminalPresenter{Out: &buf}.Present(outcome)
	assert.Contains(t, buf.String(), "Fallback-Modus")
}

func TestFlowRejectionAlsoDegrades(t *testing.T) {
	sender := &scriptedSender{errs: []error{&api.Error{Status: 500, Detail: "boom"}, nil}}
	presenter := &recordingPresenter{}
	c := newTestController(goodProvider(), sender, presenter)

	outcome, err := c.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, outcome.State)
	assert.Equal(t, models.AlertFallback, outcome.Kind)
	require.Len(t, sender.sent, 2)
}

func TestFlowCriticalFailure(t *testing.T) {
	sender := &scriptedSender{errs: []error{errors.New("down"), errors.New("still down")}}
	presenter := &recordingPresenter{}
	queue := &fakeQueue{}
	c := newTestController(goodProvider(), sender, presenter, WithQueue(queue))

	outcome, err := c.Trigger(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCriticalFailure, outcome.State)
	require.Len(t, sender.sent, 2, "no retries past the single fallback")
	require.Len(t, presenter.outcomes, 1, "presenter invoked exactly once")

	// The primary alert, with its location, is what gets queued.
	require.Len(t, queue.alerts, 1)
	assert.Equal(t, models.AlertPrimary, queue.alerts[0].Type)
	assert.NotNil(t, queue.alerts[0].Location)
	assert.True(t, outcome.Queued)

	var buf bytes.Buffer
	TerminalPresenter{Out: &buf}.Present(outcome)
	assert.Contains(t, buf.String(), "Notruf 112")
}

func TestFlowQueueFailureDoesNotMaskOutcome(t *testing.T) {
	sender := &scriptedSender{errs: []error{errors.New("down"), errors.New("down")}}
	queue := &fakeQueue{failErr: errors.New("disk full")}
	c := newTestController(goodProvider(), sender, &recordingPresenter{}, WithQueue(queue))

	outcome, err := c.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCriticalFailure, outcome.State)
	assert.False(t, outcome.Queued)
}

func TestTriggerSingleFlight(t *testing.T) {
	block := make(chan struct{})
	sender := &scriptedSender{block: block}
	c := newTestController(goodProvider(), sender, &recordingPresenter{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Trigger(context.Background())
		assert.NoError(t, err)
	}()

	// Wait for the first flow to reach the sender, then double-tap.
	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return c.inFlight.Load()
	}, time.Second, 5*time.Millisecond)

	_, err := c.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(block)
	<-done

	// After completion a new trigger is accepted again.
	_, err = c.Trigger(context.Background())
	assert.NoError(t, err)
}
