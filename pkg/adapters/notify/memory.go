// Package notify delivers link change notifications to subscribers of the
// same principal, in-process or across instances through Redis pub/sub.
package notify

import (
	"context"
	"sync"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

const subscriberBuffer = 16

// Broker is an in-process LinkNotifier. Slow subscribers miss changes rather
// than block publishers.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.LinkChange]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan domain.LinkChange]struct{})}
}

func (b *Broker) Publish(_ context.Context, change domain.LinkChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[change.PrincipalID] {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, principalID string) (<-chan domain.LinkChange, error) {
	ch := make(chan domain.LinkChange, subscriberBuffer)

	b.mu.Lock()
	if b.subs[principalID] == nil {
		b.subs[principalID] = make(map[chan domain.LinkChange]struct{})
	}
	b.subs[principalID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[principalID], ch)
		if len(b.subs[principalID]) == 0 {
			delete(b.subs, principalID)
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}

// subscribers reports the live subscription count for a principal.
func (b *Broker) subscribers(principalID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[principalID])
}

var _ ports.LinkNotifier = (*Broker)(nil)
