// Package wizard drives the six-step inspection flow: it gates forward
// movement on per-step validation and runs the final submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/sistema-agil/vistoria/internal/forms"
	"github.com/sistema-agil/vistoria/internal/models"
	"github.com/sistema-agil/vistoria/internal/payload"
	"github.com/sistema-agil/vistoria/internal/submission"
)

// DefaultThrottle is the minimum spacing between navigation actions.
const DefaultThrottle = 300 * time.Millisecond

var (
	ErrBusy      = errors.New("submission already in progress")
	ErrThrottled = errors.New("action ignored: too soon after previous action")
)

type FieldSource interface {
	Snapshot() forms.Snapshot
}

type CaptureSource interface {
	Snapshot() models.CaptureSnapshot
}

type Submitter interface {
	SaveCompleteInspection(ctx context.Context, p *models.SubmissionPayload) (*submission.SaveResult, error)
	RequestSignatureLink(ctx context.Context, p *models.SubmissionPayload) (*submission.Link, error)
}

// Recorder keeps a local trail of accepted submissions.
type Recorder interface {
	Record(ctx context.Context, r models.Receipt) error
}

// Hooks are plain callbacks, replaced by assignment. Nil hooks are skipped.
type Hooks struct {
	OnStepChange    func(from, to Step)
	OnWarning       func(err *models.Error)
	OnNotice        func(message string)
	OnReview        func(r Review)
	OnSignatureArm  func()
	OnSignatureFlag func()
}

// View is what a validator gets to look at.
type View struct {
	Fields   forms.Collected
	Raw      forms.Snapshot
	Captures models.CaptureSnapshot
}

// Validator returns nil or a *models.Error naming the offending field.
type Validator func(v View) error

type Engine struct {
	Hooks Hooks

	mu         sync.Mutex
	step       Step
	validators map[Step]Validator

	fields    FieldSource
	captures  CaptureSource
	assembler *payload.Assembler
	submitter Submitter
	recorder  Recorder
	sessionID string

	// forward covers Advance and Primary, back covers Retreat
	forward *rate.Limiter
	back    *rate.Limiter
	now     func() time.Time
	busy    atomic.Bool
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithThrottle sets the navigation spacing. Forward and backward moves are
// throttled separately. Zero disables throttling.
func WithThrottle(d time.Duration) Option {
	return func(e *Engine) {
		e.forward = newLimiter(d)
		e.back = newLimiter(d)
	}
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

func NewEngine(fields FieldSource, captures CaptureSource, assembler *payload.Assembler, submitter Submitter, opts ...Option) *Engine {
	e := &Engine{
		step:       StepVehicleInfo,
		validators: DefaultValidators(),
		fields:     fields,
		captures:   captures,
		assembler:  assembler,
		submitter:  submitter,
		forward:    newLimiter(DefaultThrottle),
		back:       newLimiter(DefaultThrottle),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Step() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Busy reports whether a submission is in flight.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// SetValidator replaces the validator for step. A nil validator always passes.
func (e *Engine) SetValidator(step Step, v Validator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v == nil {
		delete(e.validators, step)
		return
	}
	e.validators[step] = v
}

// Advance validates the current step and moves forward. At the last step
// it does nothing; use Primary or Finalize there.
func (e *Engine) Advance(ctx context.Context) error {
	if !e.allow(e.forward) {
		return ErrThrottled
	}
	return e.advance(ctx)
}

func (e *Engine) advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	current := e.step
	validate := e.validators[current]
	e.mu.Unlock()

	if current == StepSignature {
		return nil
	}

	view := e.view()
	if current == StepVehicleInfo && !view.Fields.Vehicle.Proprio && view.Fields.Vehicle.NomeTerceiro == "" {
		e.notice("Você pode preencher o nome do terceiro para registrar o proprietário do veículo")
	}
	if validate != nil {
		if err := validate(view); err != nil {
			e.warn(err, current)
			return err
		}
	}

	e.moveTo(current+1, view)
	return nil
}

// Retreat moves one step back without validation.
func (e *Engine) Retreat() error {
	if !e.allow(e.back) {
		return ErrThrottled
	}
	e.mu.Lock()
	current := e.step
	e.mu.Unlock()
	if current == StepVehicleInfo {
		return nil
	}
	e.moveTo(current-1, View{})
	return nil
}

// JumpTo moves to step unconditionally.
func (e *Engine) JumpTo(step Step) error {
	if !step.Valid() {
		return &models.Error{Kind: models.KindState, Op: "jump", Message: fmt.Sprintf("passo inválido: %d", step)}
	}
	e.moveTo(step, View{})
	return nil
}

// Primary is the main button: advance, or finalize on the last step.
func (e *Engine) Primary(ctx context.Context) (*submission.SaveResult, error) {
	if !e.allow(e.forward) {
		return nil, ErrThrottled
	}
	if e.Step() == StepSignature {
		return e.Finalize(ctx)
	}
	return nil, e.advance(ctx)
}

// Finalize validates the whole inspection and, when everything is in
// place, saves it with the signature. It only runs from the signature
// step. Local state is untouched on failure.
func (e *Engine) Finalize(ctx context.Context) (*submission.SaveResult, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	if current := e.Step(); current != StepSignature {
		err := &models.Error{
			Kind:    models.KindState,
			Op:      "finalize",
			Step:    int(current),
			Message: fmt.Sprintf("a vistoria só pode ser finalizada no passo %d (passo atual: %d)", StepSignature, current),
		}
		e.warn(err, current)
		return nil, err
	}

	view := e.view()
	if err := e.finalGate(view); err != nil {
		return nil, err
	}

	asm, err := e.assembler.Assemble(ctx, staticSource(view.Captures), view.Fields, true)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble payload: %w", err)
	}
	e.warnAll(asm.Warnings)

	slog.Info("Submitting inspection", "session_id", e.sessionID, "placa", asm.Payload.Vehicle.Placa, "photos", len(view.Captures.Photos))
	result, err := e.submitter.SaveCompleteInspection(ctx, asm.Payload)
	if err != nil {
		e.warn(err, 0)
		return nil, err
	}

	e.record(ctx, models.ReceiptComplete, result.ID.String(), result.Token, "", asm.Payload, view.Captures)
	return result, nil
}

// RequestSignatureLink submits the inspection without a signature so the
// client can sign remotely.
func (e *Engine) RequestSignatureLink(ctx context.Context) (*submission.Link, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	view := e.view()
	if errs := LinkViolations(view); len(errs) > 0 {
		for _, v := range errs {
			e.warn(v, 0)
		}
		return nil, errs
	}

	asm, err := e.assembler.Assemble(ctx, staticSource(view.Captures), view.Fields, false)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble payload: %w", err)
	}
	e.warnAll(asm.Warnings)

	link, err := e.submitter.RequestSignatureLink(ctx, asm.Payload)
	if err != nil {
		e.warn(err, 0)
		return nil, err
	}

	e.record(ctx, models.ReceiptSignatureLink, link.VistoriaID.String(), link.Token, link.URL, asm.Payload, view.Captures)
	return link, nil
}

// Review builds the summary for the current state.
func (e *Engine) Review() Review {
	v := e.view()
	return BuildReview(v.Fields, v.Captures)
}

// Reset returns to the first step.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.step = StepVehicleInfo
	e.mu.Unlock()
}

func (e *Engine) finalGate(view View) error {
	violations := FinalViolations(view)
	if len(violations) == 0 {
		return nil
	}

	focus := StepSignature
	signatureMissing := false
	for _, v := range violations {
		if s := Step(v.Step); s.Valid() && s < focus {
			focus = s
		}
		if v.Field == "assinatura" {
			signatureMissing = true
		}
		e.warn(v, 0)
	}

	if e.Step() != focus {
		e.moveTo(focus, view)
	}
	if signatureMissing && e.Hooks.OnSignatureFlag != nil {
		e.Hooks.OnSignatureFlag()
	}
	slog.Warn("Final validation failed", "session_id", e.sessionID, "violations", len(violations), "focus", focus.String())
	return violations
}

func (e *Engine) moveTo(to Step, view View) {
	e.mu.Lock()
	from := e.step
	e.step = to
	e.mu.Unlock()

	if from == to {
		return
	}
	slog.Debug("Wizard step changed", "session_id", e.sessionID, "from", from.String(), "to", to.String())
	if e.Hooks.OnStepChange != nil {
		e.Hooks.OnStepChange(from, to)
	}

	switch to {
	case StepReview:
		if e.Hooks.OnReview != nil {
			if view.Raw == nil {
				view = e.view()
			}
			e.Hooks.OnReview(BuildReview(view.Fields, view.Captures))
		}
	case StepSignature:
		if e.Hooks.OnSignatureArm != nil {
			e.Hooks.OnSignatureArm()
		}
	}
}

func (e *Engine) view() View {
	raw := e.fields.Snapshot()
	return View{
		Fields:   forms.Collect(raw),
		Raw:      raw,
		Captures: e.captures.Snapshot(),
	}
}

func (e *Engine) allow(l *rate.Limiter) bool {
	return l.AllowN(e.now(), 1)
}

func (e *Engine) warn(err error, step Step) {
	var me *models.Error
	if !errors.As(err, &me) {
		me = &models.Error{Kind: models.KindState, Step: int(step), Message: err.Error(), Err: err}
	}
	if e.Hooks.OnWarning != nil {
		e.Hooks.OnWarning(me)
	}
}

func (e *Engine) warnAll(errs []error) {
	for _, err := range errs {
		e.warn(err, 0)
	}
}

func (e *Engine) notice(msg string) {
	slog.Info("Wizard notice", "session_id", e.sessionID, "message", msg)
	if e.Hooks.OnNotice != nil {
		e.Hooks.OnNotice(msg)
	}
}

func (e *Engine) record(ctx context.Context, kind models.ReceiptKind, remoteID, token, url string, p *models.SubmissionPayload, snap models.CaptureSnapshot) {
	if e.recorder == nil {
		return
	}
	var media int64
	for _, entry := range p.Photos {
		media += entry.Size
	}
	r := models.Receipt{
		SessionID:      e.sessionID,
		Kind:           kind,
		RemoteID:       remoteID,
		Token:          token,
		URL:            url,
		Placa:          p.Vehicle.Placa,
		Modelo:         p.Vehicle.Modelo,
		NomeCliente:    p.NomeCliente,
		NomeConferente: p.NomeConferente,
		Photos:         len(snap.Photos),
		HasDocument:    p.Documento != nil,
		MediaBytes:     media,
		SubmittedAt:    e.now(),
	}
	if err := e.recorder.Record(ctx, r); err != nil {
		slog.Error("Failed to record submission", "session_id", e.sessionID, "token", token, "error", err)
	}
}

// staticSource serves the snapshot the engine already took, so the payload
// is built from exactly what was validated.
type staticSource models.CaptureSnapshot

func (s staticSource) Snapshot() models.CaptureSnapshot {
	return models.CaptureSnapshot(s)
}

// Violations is a set of validation failures ordered by step.
type Violations []*models.Error

func (v Violations) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	return fmt.Sprintf("%d validation errors, first: %s", len(v), v[0].Error())
}

func (v Violations) Unwrap() []error {
	out := make([]error, len(v))
	for i, e := range v {
		out[i] = e
	}
	return out
}

func (v Violations) sort() Violations {
	sort.SliceStable(v, func(i, j int) bool { return v[i].Step < v[j].Step })
	return v
}
