// Package events publishes check-in events and processes them off the request path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"qrattend/internal/attendance"
	"qrattend/internal/queue"
	"qrattend/internal/statscache"
)

// TypeCheckIn is the queue message type for a recorded check-in.
const TypeCheckIn = "checkin"

// CheckIn describes one attendance record that was just written.
type CheckIn struct {
	RecordID  string            `json:"recordId"`
	SessionID string            `json:"sessionId"`
	StudentID string            `json:"studentId"`
	CourseID  string            `json:"courseId"`
	Status    attendance.Status `json:"status"`
	CheckedAt time.Time         `json:"checkedAt"`
}

// FromResult builds the event for a successful check-in.
func FromResult(res attendance.CheckInResult) CheckIn {
	return CheckIn{
		RecordID:  res.Attendance.ID,
		SessionID: res.Attendance.SessionID,
		StudentID: res.Attendance.StudentID,
		CourseID:  res.CourseID,
		Status:    res.Attendance.Status,
		CheckedAt: res.Attendance.CheckedAt,
	}
}

// Message encodes the event for the queue.
func (e CheckIn) Message() (queue.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return queue.Message{}, fmt.Errorf("encode checkin event: %w", err)
	}
	return queue.Message{Type: TypeCheckIn, Body: body}, nil
}

// Decode parses a checkin message.
func Decode(msg queue.Message) (CheckIn, error) {
	if msg.Type != TypeCheckIn {
		return CheckIn{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var e CheckIn
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		return CheckIn{}, fmt.Errorf("decode checkin event: %w", err)
	}
	if e.SessionID == "" || e.StudentID == "" {
		return CheckIn{}, fmt.Errorf("checkin event %q missing session or student", e.RecordID)
	}
	return e, nil
}

// StatsKeys lists the cached statistics this check-in makes stale.
func (e CheckIn) StatsKeys() []string {
	keys := []string{
		statscache.SystemKey(),
		statscache.SessionKey(e.SessionID),
		statscache.StudentKey(e.StudentID),
	}
	if e.CourseID != "" {
		keys = append(keys, statscache.CourseKey(e.CourseID))
	}
	return keys
}

// Emitter publishes check-in events. Failures are logged and never fail the check-in.
type Emitter struct {
	pub queue.Publisher
}

// NewEmitter publishes through pub. A nil pub turns CheckedIn into a no-op.
func NewEmitter(pub queue.Publisher) *Emitter {
	return &Emitter{pub: pub}
}

// CheckedIn publishes the event for res.
func (e *Emitter) CheckedIn(ctx context.Context, res attendance.CheckInResult) {
	if e == nil || e.pub == nil {
		return
	}
	msg, err := FromResult(res).Message()
	if err != nil {
		log.Printf("events: %v", err)
		return
	}
	if err := e.pub.Publish(ctx, msg); err != nil {
		log.Printf("events: publish checkin %s: %v", res.Attendance.ID, err)
	}
}
