package sos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"time"

	"stadtwache/internal/models"
)

// FailureKind classifies why no location could be acquired.
type FailureKind int

const (
	FailurePermissionDenied FailureKind = iota
	FailureTimeout
	FailureDeviceError
)

// LocationError describes a failed acquisition. It never aborts the alert
// flow; it only determines the location_status sent with the alert.
type LocationError struct {
	Kind   FailureKind
	Reason string
}

func (e *LocationError) Error() string {
	switch e.Kind {
	case FailurePermissionDenied:
		return "location permission denied"
	case FailureTimeout:
		return "location acquisition timed out"
	default:
		if e.Reason != "" {
			return "location device error: " + e.Reason
		}
		return "location device error"
	}
}

// ErrPermissionDenied is returned by providers when the platform refuses
// foreground location access. There is no retry.
var ErrPermissionDenied = errors.New("location permission denied")

// Provider yields a single GPS fix. Implementations must honor ctx.
type Provider interface {
	Acquire(ctx context.Context) (*models.Location, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (*models.Location, error)

func (f ProviderFunc) Acquire(ctx context.Context) (*models.Location, error) { return f(ctx) }

// Acquirer wraps a Provider with the mandatory bounded wait: however the
// platform behaves, the alert flow proceeds after at most the timeout.
type Acquirer struct {
	provider Provider
	timeout  time.Duration
}

// NewAcquirer builds an Acquirer. A non-positive timeout falls back to 10s,
// the bound the mobile clients always used.
func NewAcquirer(p Provider, timeout time.Duration) *Acquirer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Acquirer{provider: p, timeout: timeout}
}

// Acquire requests one fix. On failure the returned *LocationError carries
// the specific reason; the fix is validated so an alert never ships
// out-of-range coordinates.
func (a *Acquirer) Acquire(ctx context.Context) (*models.Location, *LocationError) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		loc *models.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := a.provider.Acquire(ctx)
		ch <- result{loc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, classify(r.err)
		}
		if err := validate(r.loc); err != nil {
			return nil, err
		}
		return r.loc, nil
	case <-ctx.Done():
		return nil, &LocationError{Kind: FailureTimeout}
	}
}

func classify(err error) *LocationError {
	if errors.Is(err, ErrPermissionDenied) {
		return &LocationError{Kind: FailurePermissionDenied}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &LocationError{Kind: FailureTimeout}
	}
	return &LocationError{Kind: FailureDeviceError, Reason: err.Error()}
}

func validate(loc *models.Location) *LocationError {
	if loc == nil {
		return &LocationError{Kind: FailureDeviceError, Reason: "empty fix"}
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return &LocationError{
			Kind:   FailureDeviceError,
			Reason: fmt.Sprintf("coordinates out of range: %f, %f", loc.Latitude, loc.Longitude),
		}
	}
	if math.IsNaN(loc.Accuracy) || math.IsInf(loc.Accuracy, 0) || loc.Accuracy < 0 {
		return &LocationError{Kind: FailureDeviceError, Reason: "invalid accuracy"}
	}
	return nil
}

// Location status strings as the team sees them. German, matching the
// wire traffic the receiving side already parses.
const (
	statusDenied      = "GPS-Berechtigung verweigert"
	statusTimeout     = "GPS-Zeitüberschreitung"
	statusUnavailable = "GPS nicht verfügbar"
)

// StatusFor renders the location_status string for a fix or its failure.
// The result is always non-empty and names the specific reason.
func StatusFor(loc *models.Location, lerr *LocationError) string {
	if loc != nil {
		return fmt.Sprintf("GPS: %.6f, %.6f", loc.Latitude, loc.Longitude)
	}
	if lerr == nil {
		return statusUnavailable
	}
	switch lerr.Kind {
	case FailurePermissionDenied:
		return statusDenied
	case FailureTimeout:
		return statusTimeout
	default:
		if lerr.Reason != "" {
			return "GPS-Fehler: " + lerr.Reason
		}
		return "GPS-Fehler"
	}
}

// FixedProvider returns a configured stationary position, used by desk
// terminals without a GPS receiver.
type FixedProvider struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

func (p FixedProvider) Acquire(ctx context.Context) (*models.Location, error) {
	return &models.Location{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// CommandProvider shells out to a platform helper (gpspipe, termux-location
// and friends) that prints a single JSON fix on stdout.
type CommandProvider struct {
	Command string
	Args    []string
}

func (p CommandProvider) Acquire(ctx context.Context) (*models.Location, error) {
	out, err := exec.CommandContext(ctx, p.Command, p.Args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("location command: %w", err)
	}
	var loc models.Location
	if err := json.Unmarshal(out, &loc); err != nil {
		return nil, fmt.Errorf("location command output: %w", err)
	}
	if loc.Timestamp == 0 {
		loc.Timestamp = time.Now().UnixMilli()
	}
	return &loc, nil
}

// DeniedProvider models a device whose operator has not granted location
// access; every acquisition fails immediately with a permission error.
type DeniedProvider struct{}

func (DeniedProvider) Acquire(ctx context.Context) (*models.Location, error) {
	return nil, ErrPermissionDenied
}
