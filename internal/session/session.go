// Package session ties one inspection's form, captures and wizard together.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sistema-agil/vistoria/internal/capture"
	"github.com/sistema-agil/vistoria/internal/device"
	"github.com/sistema-agil/vistoria/internal/forms"
	"github.com/sistema-agil/vistoria/internal/images"
	"github.com/sistema-agil/vistoria/internal/models"
	"github.com/sistema-agil/vistoria/internal/payload"
	"github.com/sistema-agil/vistoria/internal/wizard"
)

type EventKind string

const (
	EventWarning       EventKind = "warning"
	EventNotice        EventKind = "notice"
	EventStep          EventKind = "step"
	EventSignatureArm  EventKind = "signature_armed"
	EventSignatureFlag EventKind = "signature_flagged"
)

// Event is something the wizard wanted to show the operator.
type Event struct {
	Kind    EventKind   `json:"kind"`
	Step    int         `json:"step,omitempty"`
	Field   string      `json:"field,omitempty"`
	Code    models.Kind `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	At      time.Time   `json:"at"`
}

// Deps are shared across sessions.
type Deps struct {
	Submitter wizard.Submitter
	Recorder  wizard.Recorder
	UserAgent string
	Throttle  time.Duration
	Now       func() time.Time
}

type Session struct {
	ID        string
	Profile   device.Profile
	Form      *forms.Form
	Capture   *capture.Store
	Engine    *wizard.Engine
	CreatedAt time.Time

	mu         sync.Mutex
	events     []Event
	review     *wizard.Review
	lastActive time.Time
	now        func() time.Time
}

func New(profile device.Profile, deps Deps) *Session {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	id := uuid.Must(uuid.NewV7()).String()

	s := &Session{
		ID:        id,
		Profile:   profile,
		Form:      forms.NewInspectionForm(),
		Capture:   capture.NewStore(profile, capture.WithOptimizer(images.NewOptimizer(profile)), capture.WithClock(now)),
		CreatedAt: now(),
		now:       now,
	}
	s.lastActive = s.CreatedAt

	asmOpts := []payload.Option{payload.WithSessionID(id), payload.WithClock(now)}
	if deps.UserAgent != "" {
		asmOpts = append(asmOpts, payload.WithUserAgent(deps.UserAgent))
	}

	engineOpts := []wizard.Option{
		wizard.WithSessionID(id),
		wizard.WithThrottle(deps.Throttle),
		wizard.WithClock(now),
	}
	if deps.Recorder != nil {
		engineOpts = append(engineOpts, wizard.WithRecorder(deps.Recorder))
	}

	s.Engine = wizard.NewEngine(s.Form, s.Capture, payload.NewAssembler(asmOpts...), deps.Submitter, engineOpts...)
	s.Engine.Hooks = wizard.Hooks{
		OnStepChange: func(from, to wizard.Step) {
			s.push(Event{Kind: EventStep, Step: int(to), Message: from.String() + " -> " + to.String()})
		},
		OnWarning: func(err *models.Error) {
			s.push(Event{Kind: EventWarning, Step: err.Step, Field: err.Field, Code: err.Kind, Message: err.Message})
		},
		OnNotice: func(msg string) {
			s.push(Event{Kind: EventNotice, Message: msg})
		},
		OnReview: func(r wizard.Review) {
			s.mu.Lock()
			s.review = &r
			s.mu.Unlock()
		},
		OnSignatureArm: func() {
			s.push(Event{Kind: EventSignatureArm, Step: int(wizard.StepSignature)})
		},
		OnSignatureFlag: func() {
			s.push(Event{Kind: EventSignatureFlag, Step: int(wizard.StepSignature), Field: "assinatura"})
		},
	}
	return s
}

func (s *Session) push(ev Event) {
	ev.At = s.now()
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

// Touch marks the session as in use.
func (s *Session) Touch() {
	at := s.now()
	s.mu.Lock()
	if at.After(s.lastActive) {
		s.lastActive = at
	}
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Idle reports whether the session has not been used since cutoff and has
// no submission in flight.
func (s *Session) Idle(cutoff time.Time) bool {
	return s.LastActive().Before(cutoff) && !s.Engine.Busy()
}

// DrainEvents returns the pending events and forgets them.
func (s *Session) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	if out == nil {
		out = []Event{}
	}
	return out
}

// LastReview is the summary rendered when the wizard last entered the
// review step, or nil.
func (s *Session) LastReview() *wizard.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review
}

// Reset clears the form, all captures and the wizard position.
func (s *Session) Reset() {
	s.Form.Reset()
	s.Capture.ResetAll()
	s.Engine.Reset()
	s.mu.Lock()
	s.events = nil
	s.review = nil
	s.mu.Unlock()
}

// Summary is the JSON view of a session.
type Summary struct {
	ID           string    `json:"id"`
	Device       string    `json:"device"`
	Step         int       `json:"step"`
	StepName     string    `json:"step_name"`
	Photos       []string  `json:"photos"`
	HasDocument  bool      `json:"has_document"`
	HasSignature bool      `json:"has_signature"`
	Busy         bool      `json:"busy"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

func (s *Session) Summary() Summary {
	snap := s.Capture.Snapshot()
	slots := make([]string, 0, len(snap.Photos))
	for _, p := range snap.Photos {
		slots = append(slots, p.SlotName)
	}
	step := s.Engine.Step()
	return Summary{
		ID:           s.ID,
		Device:       s.Profile.String(),
		Step:         int(step),
		StepName:     step.String(),
		Photos:       slots,
		HasDocument:  snap.Document != nil,
		HasSignature: snap.Signature != nil,
		Busy:         s.Engine.Busy(),
		CreatedAt:    s.CreatedAt,
		LastActive:   s.LastActive(),
	}
}
