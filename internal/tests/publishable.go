package tests

import (
	"time"

	"github.com/walletera/eventskit/events"
)

var _ events.EventData = publishable{}

// publishable lets a raw serialized event be republished as-is.
// Only Serialize is ever called by the publisher.
type publishable struct {
	rawEvent []byte
}

func (p publishable) ID() string {
	panic("not implemented")
}

func (p publishable) Type() string {
	panic("not implemented")
}

func (p publishable) AggregateVersion() uint64 {
	panic("not implemented")
}

func (p publishable) CorrelationID() string {
	panic("not implemented")
}

func (p publishable) DataContentType() string {
	panic("not implemented")
}

func (p publishable) CreatedAt() time.Time {
	panic("not implemented")
}

func (p publishable) Serialize() ([]byte, error) {
	return p.rawEvent, nil
}
