// Package agent routes an inbound chat message to a response strategy.
//
// A Pipeline run walks a fixed state machine:
//
//	Entry -> ContextLoad -> Classify -> {General | LeadCapture | Appointment} -> Finalize -> Done
//
// Exactly one strategy runs per message. The only blocking call is the
// completion provider used by the general strategy.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/callflow-ai/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FallbackResponse replaces an empty strategy response during Finalize.
const FallbackResponse = "Lo siento, no pude procesar tu consulta. ¿Podrías reformularla?"

// State is a step of the pipeline state machine.
type State int

const (
	StateEntry State = iota
	StateContextLoad
	StateClassify
	StateGeneral
	StateLeadCapture
	StateAppointment
	StateFinalize
	StateDone
)

var stateNames = [...]string{
	StateEntry:       "entry",
	StateContextLoad: "context_load",
	StateClassify:    "classify",
	StateGeneral:     "general",
	StateLeadCapture: "lead_capture",
	StateAppointment: "appointment",
	StateFinalize:    "finalize",
	StateDone:        "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Input is one inbound message plus the caller-resolved session.
// History is accepted for callers that load it, but routing ignores it.
type Input struct {
	Session SessionContext
	Message string
	History []ConversationTurn
}

// Result is the finalized output of one pipeline run.
type Result struct {
	Response     string         `json:"response"`
	ResponseType Intent         `json:"response_type"`
	Metadata     map[string]any `json:"metadata"`
	Intent       Intent         `json:"intent"`
	StartedAt    time.Time      `json:"-"`
	CompletedAt  time.Time      `json:"-"`
}

// Observer receives one call per finished run.
type Observer interface {
	ObservePipeline(intent string, duration time.Duration, err error)
}

// Pipeline holds immutable configuration and is safe for concurrent use.
type Pipeline struct {
	strategies map[Intent]Strategy
	logger     *logging.Logger
	tracer     trace.Tracer
	now        func() time.Time
	observer   Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStrategy overrides the strategy bound to intent.
func WithStrategy(intent Intent, s Strategy) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.strategies[intent] = s
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// NewPipeline wires the three default strategies; provider backs the general one.
func NewPipeline(provider TextCompletionProvider, opts ...Option) *Pipeline {
	p := &Pipeline{
		strategies: map[Intent]Strategy{
			IntentGeneral:     NewGeneralStrategy(provider),
			IntentLeadCapture: LeadCaptureStrategy{},
			IntentAppointment: AppointmentStrategy{},
		},
		logger: logging.Default(),
		tracer: otel.Tracer("callflow.internal.agent"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run is the mutable state threaded through one Process call.
type run struct {
	input   Input
	context SessionContext
	intent  Intent
	result  Result
}

// Process runs the state machine to Done. Strategy errors are returned
// unchanged and no result is produced.
func (p *Pipeline) Process(ctx context.Context, in Input) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "agent.pipeline")
	defer span.End()
	span.SetAttributes(attribute.Int("agent.history_len", len(in.History)))

	r := &run{input: in}
	state := StateEntry
	for state != StateDone {
		next, err := p.step(ctx, r, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.logger.Error("pipeline step failed", "state", state.String(), "intent", r.intent.String(), "error", err)
			p.observe(r, err)
			return nil, err
		}
		p.logger.Debug("pipeline transition", "from", state.String(), "to", next.String())
		state = next
	}

	span.SetAttributes(attribute.String("agent.intent", r.intent.String()))
	p.observe(r, nil)
	result := r.result
	return &result, nil
}

// step executes state and returns the state that follows it.
func (p *Pipeline) step(ctx context.Context, r *run, state State) (State, error) {
	switch state {
	case StateEntry:
		r.result = Result{StartedAt: p.now()}
		return StateContextLoad, nil

	case StateContextLoad:
		r.context = loadContext(r.input.Session)
		return StateClassify, nil

	case StateClassify:
		r.intent = Classify(r.input.Message)
		p.logger.Info("intent detected", "intent", r.intent.String())
		return dispatchState(r.intent), nil

	case StateGeneral, StateLeadCapture, StateAppointment:
		if err := p.dispatch(ctx, r, state); err != nil {
			return state, err
		}
		return StateFinalize, nil

	case StateFinalize:
		finalize(&r.result, p.now())
		return StateDone, nil
	}
	return StateDone, fmt.Errorf("agent: unknown pipeline state %s", state)
}

func dispatchState(intent Intent) State {
	switch intent {
	case IntentLeadCapture:
		return StateLeadCapture
	case IntentAppointment:
		return StateAppointment
	default:
		return StateGeneral
	}
}

func intentFor(state State) Intent {
	switch state {
	case StateLeadCapture:
		return IntentLeadCapture
	case StateAppointment:
		return IntentAppointment
	default:
		return IntentGeneral
	}
}

func (p *Pipeline) dispatch(ctx context.Context, r *run, state State) error {
	intent := intentFor(state)
	strategy, ok := p.strategies[intent]
	if !ok {
		return fmt.Errorf("agent: no strategy registered for intent %s", intent)
	}

	ctx, span := p.tracer.Start(ctx, "agent.strategy."+intent.String())
	defer span.End()

	reply, err := strategy.Respond(ctx, r.context, r.input.Message)
	if err != nil {
		span.RecordError(err)
		return err
	}

	r.result.Response = reply.Text
	r.result.ResponseType = intent
	r.result.Intent = intent
	r.result.Metadata = reply.Metadata
	return nil
}

// finalize enforces the non-empty response invariant and stamps completion.
func finalize(res *Result, completedAt time.Time) {
	if res.Response == "" {
		res.Response = FallbackResponse
	}
	if res.Metadata == nil {
		res.Metadata = map[string]any{}
	}
	if res.Intent == "" {
		res.Intent = IntentGeneral
	}
	res.ResponseType = res.Intent
	res.CompletedAt = completedAt
}

func (p *Pipeline) observe(r *run, err error) {
	if p.observer == nil {
		return
	}
	var elapsed time.Duration
	if !r.result.StartedAt.IsZero() {
		elapsed = p.now().Sub(r.result.StartedAt)
	}
	intent := r.intent
	if intent == "" {
		intent = IntentGeneral
	}
	p.observer.ObservePipeline(intent.String(), elapsed, err)
}
