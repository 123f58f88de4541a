package sos

import (
	"context"
	"time"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
)

// Sender transmits one alert. Implementations never retry; recovery policy
// belongs to the Controller.
type Sender interface {
	Send(ctx context.Context, alert *models.EmergencyAlert) (*models.BroadcastAck, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, alert *models.EmergencyAlert) (*models.BroadcastAck, error)

func (f SenderFunc) Send(ctx context.Context, alert *models.EmergencyAlert) (*models.BroadcastAck, error) {
	return f(ctx, alert)
}

// apiSender posts to /api/emergency/broadcast with a hard per-send timeout
// so a stalled connection cannot hold up the fallback attempt.
type apiSender struct {
	client  *api.Client
	timeout time.Duration
}

// NewSender builds the production Sender. A non-positive timeout falls
// back to 8s.
func NewSender(client *api.Client, timeout time.Duration) Sender {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &apiSender{client: client, timeout: timeout}
}

func (s *apiSender) Send(ctx context.Context, alert *models.EmergencyAlert) (*models.BroadcastAck, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.BroadcastEmergency(ctx, alert)
}
