package events

import (
	"context"
	"log"

	"qrattend/internal/queue"
)

// Invalidator drops cached statistics.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Processor consumes check-in events, invalidates stale statistics and
// writes an audit line per record.
type Processor struct {
	inv     Invalidator
	onEvent func(CheckIn, error)
}

// NewProcessor creates a processor. onEvent, if set, observes every handled event.
func NewProcessor(inv Invalidator, onEvent func(CheckIn, error)) *Processor {
	return &Processor{inv: inv, onEvent: onEvent}
}

// Handle processes a single message. Unknown types are skipped.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != TypeCheckIn {
		return nil
	}
	e, err := Decode(msg)
	if err == nil && p.inv != nil {
		err = p.inv.Invalidate(ctx, e.StatsKeys()...)
	}
	if err == nil {
		log.Printf("audit: checkin record=%s session=%s student=%s course=%s status=%s at=%s",
			e.RecordID, e.SessionID, e.StudentID, e.CourseID, e.Status, e.CheckedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if p.onEvent != nil {
		p.onEvent(e, err)
	}
	return err
}

// Run consumes q until ctx is done. Handler errors are logged and the loop continues.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if err := p.Handle(ctx, msg); err != nil {
			log.Printf("events: handle %s: %v", msg.Type, err)
		}
	}
	return ctx.Err()
}
