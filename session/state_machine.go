package session

import (
	"time"

	roadside "github.com/goliatone/go-roadside"
	"github.com/google/uuid"
)

const (
	ReasonSessionCreated  = "Session created"
	ReasonOfficerAssigned = "Officer assigned to session"
	ReasonCancelledByUser = "Session cancelled by user"
)

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

type transitionOptions struct {
	reason string
	force  bool
}

// WithTransitionReason sets the human readable reason for the audit entry.
func WithTransitionReason(reason string) TransitionOption {
	return func(o *transitionOptions) {
		o.reason = reason
	}
}

// WithForceTransition skips the graph check. Terminal sessions still
// refuse to move.
func WithForceTransition() TransitionOption {
	return func(o *transitionOptions) {
		o.force = true
	}
}

// StateMachine applies status changes to a loaded session in memory. The
// caller persists the result in one transaction.
type StateMachine interface {
	Start(s *Session, actor roadside.Actor, reason string) (Transition, error)
	Transition(s *Session, actor roadside.Actor, target Status, opts ...TransitionOption) (Transition, error)
	CanTransition(from, to Status) bool
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*stateMachine)

// WithStateMachineClock injects the clock used for audit and lifecycle timestamps.
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *stateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithTransitions replaces the transition graph.
func WithTransitions(graph map[Status][]Status) StateMachineOption {
	return func(sm *stateMachine) {
		if graph != nil {
			sm.transitions = buildGraph(graph)
		}
	}
}

// DefaultTransitions is the lifecycle graph. Terminal states have no edges.
func DefaultTransitions() map[Status][]Status {
	return map[Status][]Status{
		StatusCreated:         {StatusAssigned, StatusCancelled},
		StatusAssigned:        {StatusVerified, StatusCancelled},
		StatusVerified:        {StatusReasonsSelected, StatusCompleted, StatusCancelled},
		StatusReasonsSelected: {StatusCompleted, StatusCancelled},
	}
}

type stateMachine struct {
	transitions map[Status]map[Status]struct{}
	now         func() time.Time
}

// NewStateMachine returns the default implementation.
func NewStateMachine(opts ...StateMachineOption) StateMachine {
	sm := &stateMachine{
		transitions: buildGraph(DefaultTransitions()),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}
	return sm
}

func buildGraph(graph map[Status][]Status) map[Status]map[Status]struct{} {
	out := make(map[Status]map[Status]struct{}, len(graph))
	for from, targets := range graph {
		out[from] = make(map[Status]struct{}, len(targets))
		for _, to := range targets {
			out[from][to] = struct{}{}
		}
	}
	return out
}

func (sm *stateMachine) CanTransition(from, to Status) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Start puts a new session in CREATED and records the initial entry, the
// only one without a source state.
func (sm *stateMachine) Start(s *Session, actor roadside.Actor, reason string) (Transition, error) {
	if s == nil {
		return Transition{}, roadside.ErrInvalidTransition
	}
	if len(s.Transitions) > 0 {
		return Transition{}, roadside.ErrInvalidTransition
	}
	if reason == "" {
		reason = ReasonSessionCreated
	}

	now := sm.now().UTC()
	s.Status = StatusCreated
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	t := newTransition(s, nil, StatusCreated, actor, reason, now)
	s.Transitions = append(s.Transitions, t)
	return t, nil
}

// Transition validates and applies target, appends the audit entry and sets
// the lifecycle timestamps that are still unset.
func (sm *stateMachine) Transition(s *Session, actor roadside.Actor, target Status, opts ...TransitionOption) (Transition, error) {
	if s == nil || !target.IsValid() {
		return Transition{}, roadside.ErrInvalidTransition
	}

	from := s.Status
	if from.IsTerminal() {
		return Transition{}, roadside.ErrTerminalState
	}
	if from == target {
		return Transition{}, roadside.ErrInvalidTransition
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if !options.force && !sm.CanTransition(from, target) {
		return Transition{}, roadside.ErrInvalidTransition
	}

	now := sm.now().UTC()
	s.Status = target
	s.UpdatedAt = now

	prev := from
	t := newTransition(s, &prev, target, actor, options.reason, now)
	s.Transitions = append(s.Transitions, t)

	switch target {
	case StatusAssigned:
		setOnce(&s.AssignedAt, now)
		setOnce(&s.StartedAt, now)
	case StatusVerified:
		setOnce(&s.VerifiedAt, now)
	case StatusCompleted, StatusCancelled:
		setOnce(&s.CompletedAt, now)
	}

	return t, nil
}

func newTransition(s *Session, from *Status, to Status, actor roadside.Actor, reason string, now time.Time) Transition {
	t := Transition{
		ID:        uuid.New(),
		SessionID: s.ID,
		Seq:       nextSeq(s),
		FromState: from,
		ToState:   to,
		Reason:    reason,
		CreatedAt: now,
	}
	if !actor.IsZero() {
		id := actor.ID
		t.TriggeredBy = &id
	}
	return t
}

func nextSeq(s *Session) int {
	if last, ok := s.LastTransition(); ok {
		return last.Seq + 1
	}
	return 1
}

func setOnce(field **time.Time, now time.Time) {
	if *field != nil {
		return
	}
	t := now
	*field = &t
}
