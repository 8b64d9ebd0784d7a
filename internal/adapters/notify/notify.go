// Package notify defines the downstream signal emitted for each newly
// formed group. Chat-room provisioning and user notification consume these
// events outside this system.
package notify

import (
	"context"
	"sync"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// GroupFormed is the event payload published per formed group.
type GroupFormed struct {
	GroupID string   `json:"group_id"`
	City    string   `json:"city"`
	Members []string `json:"members"`
	Week    string   `json:"week"`
	BatchID string   `json:"batch_id"`
}

// Announcer publishes group-formed events to downstream consumers.
type Announcer interface {
	Announce(ctx context.Context, event GroupFormed) error
}

// ChannelAnnouncer is an in-memory Announcer delivering events on a
// buffered channel. Deployments bridge this to a real message transport.
type ChannelAnnouncer struct {
	mu     sync.Mutex
	events chan GroupFormed
	closed bool
}

// Option applies a configuration option to the ChannelAnnouncer.
type Option func(*ChannelAnnouncer)

// WithBufferSize sets the event channel buffer.
func WithBufferSize(size int) Option {
	return func(a *ChannelAnnouncer) {
		if size > 0 {
			a.events = make(chan GroupFormed, size)
		}
	}
}

const defaultBufferSize = 1024

// NewChannelAnnouncer creates a ChannelAnnouncer.
func NewChannelAnnouncer(opts ...Option) *ChannelAnnouncer {
	a := &ChannelAnnouncer{events: make(chan GroupFormed, defaultBufferSize)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Announce publishes the event without blocking the run; a full buffer
// drops the oldest pending event first. Notification delivery is
// best-effort and never fails a completed run.
func (a *ChannelAnnouncer) Announce(ctx context.Context, event GroupFormed) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	for {
		select {
		case a.events <- event:
			return nil
		default:
			select {
			case <-a.events:
			default:
			}
		}
	}
}

// Events exposes the delivery channel to the downstream consumer.
func (a *ChannelAnnouncer) Events() <-chan GroupFormed {
	return a.events
}

// Close stops the announcer; further Announce calls return ErrClosed.
func (a *ChannelAnnouncer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	return nil
}

// EventFor builds the event payload for a formed group.
func EventFor(batchID string, g model.Group) GroupFormed {
	members := make([]string, len(g.Members))
	copy(members, g.Members)
	return GroupFormed{
		GroupID: g.ID,
		City:    g.City,
		Members: members,
		Week:    g.Week.String(),
		BatchID: batchID,
	}
}
