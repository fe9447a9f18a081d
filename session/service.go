package session

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	roadside "github.com/goliatone/go-roadside"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Directory resolves the users a session points at.
type Directory interface {
	roadside.NameResolver
	GetWithProfile(ctx context.Context, id uuid.UUID) (*roadside.User, error)
}

// Service coordinates session lifecycle changes. Every operation takes the
// acting user explicitly and checks it against the access policy.
type Service struct {
	store        Store
	directory    Directory
	machine      StateMachine
	policy       roadside.AccessPolicy
	logger       roadside.Logger
	activitySink roadside.ActivitySink
	now          func() time.Time
}

type ServiceOption func(*Service)

func WithServiceLogger(logger roadside.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithServiceAccessPolicy(policy roadside.AccessPolicy) ServiceOption {
	return func(s *Service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithServiceStateMachine replaces the default lifecycle graph.
func WithServiceStateMachine(machine StateMachine) ServiceOption {
	return func(s *Service) {
		if machine != nil {
			s.machine = machine
		}
	}
}

func WithServiceActivitySink(sink roadside.ActivitySink) ServiceOption {
	return func(s *Service) {
		s.activitySink = roadside.NormalizeActivitySink(sink)
	}
}

// WithServiceClock sets the clock used for events and, unless a state
// machine is supplied, for lifecycle timestamps.
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewService(store Store, directory Directory, opts ...ServiceOption) *Service {
	svc := &Service{
		store:        store,
		directory:    directory,
		policy:       roadside.DefaultAccessPolicy(),
		logger:       roadside.DefaultLogger(),
		activitySink: roadside.NormalizeActivitySink(nil),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if svc.machine == nil {
		svc.machine = NewStateMachine(WithStateMachineClock(svc.now))
	}
	return svc
}

// Create opens a session in CREATED with its initial audit entry. Drivers
// open sessions for themselves; officers name the driver.
func (svc *Service) Create(ctx context.Context, actor roadside.Actor, req CreateRequest) (Summary, error) {
	if err := svc.policy.RequireRole(roadside.ActionSessionCreate, actor); err != nil {
		return Summary{}, err
	}
	if err := req.Validate(); err != nil {
		return Summary{}, roadside.NewValidationError(err)
	}

	driverID, err := svc.resolveDriver(ctx, actor, req.DriverID)
	if err != nil {
		return Summary{}, err
	}

	s := &Session{
		ID:        uuid.New(),
		DriverID:  driverID,
		Address:   req.Address,
		Reason:    req.Reason,
		Notes:     req.Notes,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if _, err := svc.machine.Start(s, actor, ReasonSessionCreated); err != nil {
		return Summary{}, err
	}

	err = svc.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return svc.store.CreateTx(ctx, tx, s)
	})
	if err != nil {
		return Summary{}, svc.mapError(err, "could not create session")
	}

	svc.logger.Info("session created", "session", s.ID, "driver", s.DriverID, "actor", actor.ID)
	svc.emit(ctx, roadside.ActivityEvent{
		EventType: roadside.ActivityEventSessionCreated,
		Actor:     actor.Ref(),
		UserID:    s.DriverID.String(),
		SessionID: s.ID.String(),
		ToStatus:  s.Status.String(),
	})

	return svc.summarize(ctx, s)
}

func (svc *Service) resolveDriver(ctx context.Context, actor roadside.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if requested == nil || *requested == uuid.Nil || *requested == actor.ID {
		return actor.ID, nil
	}
	if actor.Role != roadside.RoleOfficer {
		return uuid.Nil, roadside.ErrForbidden
	}
	if svc.directory == nil {
		return *requested, nil
	}

	driver, err := svc.directory.GetWithProfile(ctx, *requested)
	if err != nil {
		return uuid.Nil, err
	}
	if driver.Role != roadside.RoleDriver || !driver.Enabled {
		return uuid.Nil, roadside.NewValidationError(errNotADriver)
	}
	return driver.ID, nil
}

var (
	errNotADriver  = errors.New("driverId must reference an active driver")
	errAssignRoute = errors.New("use the assign endpoint to move a session to ASSIGNED")
)

// Get returns a session the actor participates in.
func (svc *Service) Get(ctx context.Context, actor roadside.Actor, id uuid.UUID) (Summary, error) {
	s, err := svc.load(ctx, actor, roadside.ActionSessionRead, id)
	if err != nil {
		return Summary{}, err
	}
	return svc.summarize(ctx, s)
}

// ListMine returns the sessions the actor drove in, newest first.
func (svc *Service) ListMine(ctx context.Context, actor roadside.Actor, page Page) (PageResult, error) {
	if err := svc.policy.RequireRole(roadside.ActionSessionListMine, actor); err != nil {
		return PageResult{}, err
	}
	page = page.Normalize()
	rows, total, err := svc.store.ListByDriver(ctx, actor.ID, page)
	if err != nil {
		return PageResult{}, err
	}
	return svc.page(ctx, rows, total, page)
}

// ListAssigned returns the sessions assigned to the acting officer.
func (svc *Service) ListAssigned(ctx context.Context, actor roadside.Actor, page Page) (PageResult, error) {
	if err := svc.policy.RequireRole(roadside.ActionSessionListAssigned, actor); err != nil {
		return PageResult{}, err
	}
	page = page.Normalize()
	rows, total, err := svc.store.ListByOfficer(ctx, actor.ID, page)
	if err != nil {
		return PageResult{}, err
	}
	return svc.page(ctx, rows, total, page)
}

// ListActive returns sessions in CREATED, ASSIGNED or VERIFIED.
func (svc *Service) ListActive(ctx context.Context, actor roadside.Actor, page Page) (PageResult, error) {
	if err := svc.policy.RequireRole(roadside.ActionSessionListActive, actor); err != nil {
		return PageResult{}, err
	}
	page = page.Normalize()
	rows, total, err := svc.store.ListByStatus(ctx, ActiveStatuses, page)
	if err != nil {
		return PageResult{}, err
	}
	return svc.page(ctx, rows, total, page)
}

// UpdateStatus moves the session along the lifecycle graph. ASSIGNED is
// only reachable through AssignOfficer.
func (svc *Service) UpdateStatus(ctx context.Context, actor roadside.Actor, id uuid.UUID, req StatusRequest) (Summary, error) {
	if actor.IsZero() {
		return Summary{}, roadside.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return Summary{}, roadside.NewValidationError(err)
	}
	target, _ := ParseStatus(req.Status)

	s, t, err := svc.mutate(ctx, id, func(s *Session) (Transition, error) {
		if err := svc.policy.Authorize(roadside.ActionSessionUpdateStatus, actor, s); err != nil {
			return Transition{}, err
		}
		if target == StatusAssigned && !s.HasOfficer() {
			return Transition{}, roadside.NewValidationError(errAssignRoute)
		}
		return svc.machine.Transition(s, actor, target, WithTransitionReason(req.Reason))
	})
	if err != nil {
		return Summary{}, svc.mapError(err, "could not update session status")
	}

	svc.statusChanged(ctx, actor, s, t, roadside.ActivityEventSessionStatusChange)
	return svc.summarize(ctx, s)
}

// AssignOfficer assigns the acting officer and moves the session to
// ASSIGNED. A session keeps its first officer.
func (svc *Service) AssignOfficer(ctx context.Context, actor roadside.Actor, id uuid.UUID) (Summary, error) {
	if err := svc.policy.RequireRole(roadside.ActionSessionAssignOfficer, actor); err != nil {
		return Summary{}, err
	}

	s, t, err := svc.mutate(ctx, id, func(s *Session) (Transition, error) {
		if s.HasOfficer() {
			return Transition{}, roadside.ErrOfficerAlreadyAssigned
		}
		t, err := svc.machine.Transition(s, actor, StatusAssigned, WithTransitionReason(ReasonOfficerAssigned))
		if err != nil {
			return Transition{}, err
		}
		officerID := actor.ID
		s.OfficerID = &officerID
		return t, nil
	})
	if err != nil {
		return Summary{}, svc.mapError(err, "could not assign officer")
	}

	svc.logger.Info("officer assigned", "session", s.ID, "officer", actor.ID)
	svc.statusChanged(ctx, actor, s, t, roadside.ActivityEventOfficerAssigned)
	return svc.summarize(ctx, s)
}

// Cancel moves a non terminal session to CANCELLED.
func (svc *Service) Cancel(ctx context.Context, actor roadside.Actor, id uuid.UUID) (Summary, error) {
	if actor.IsZero() {
		return Summary{}, roadside.ErrUnauthenticated
	}

	s, t, err := svc.mutate(ctx, id, func(s *Session) (Transition, error) {
		if err := svc.policy.Authorize(roadside.ActionSessionCancel, actor, s); err != nil {
			return Transition{}, err
		}
		return svc.machine.Transition(s, actor, StatusCancelled, WithTransitionReason(ReasonCancelledByUser))
	})
	if err != nil {
		return Summary{}, svc.mapError(err, "could not cancel session")
	}

	svc.statusChanged(ctx, actor, s, t, roadside.ActivityEventSessionStatusChange)
	return svc.summarize(ctx, s)
}

// History returns the audit trail, oldest first.
func (svc *Service) History(ctx context.Context, actor roadside.Actor, id uuid.UUID) ([]Transition, error) {
	s, err := svc.load(ctx, actor, roadside.ActionSessionRead, id)
	if err != nil {
		return nil, err
	}
	out := make([]Transition, len(s.Transitions))
	copy(out, s.Transitions)
	return out, nil
}

// UpdateDetails patches descriptive fields of a non terminal session.
func (svc *Service) UpdateDetails(ctx context.Context, actor roadside.Actor, id uuid.UUID, req DetailsRequest) (Summary, error) {
	if actor.IsZero() {
		return Summary{}, roadside.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return Summary{}, roadside.NewValidationError(err)
	}

	var s *Session
	err := svc.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		s, err = svc.store.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := svc.policy.Authorize(roadside.ActionSessionUpdateDetails, actor, s); err != nil {
			return err
		}
		if s.Status.IsTerminal() {
			return roadside.ErrTerminalState
		}
		if req.IsEmpty() {
			return nil
		}

		expected := s.Version
		applyDetails(s, req)
		s.UpdatedAt = svc.now().UTC()
		return svc.store.UpdateDetailsTx(ctx, tx, s, expected)
	})
	if err != nil {
		return Summary{}, svc.mapError(err, "could not update session")
	}
	return svc.summarize(ctx, s)
}

func applyDetails(s *Session, req DetailsRequest) {
	if req.Address != nil {
		s.Address = *req.Address
	}
	if req.Reason != nil {
		s.Reason = *req.Reason
	}
	if req.Notes != nil {
		s.Notes = *req.Notes
	}
	if req.Latitude != nil {
		s.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		s.Longitude = req.Longitude
	}
}

// load reads a session and checks action against it. Unauthenticated
// callers are rejected before the lookup.
func (svc *Service) load(ctx context.Context, actor roadside.Actor, action roadside.Action, id uuid.UUID) (*Session, error) {
	if actor.IsZero() {
		return nil, roadside.ErrUnauthenticated
	}
	s, err := svc.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := svc.policy.Authorize(action, actor, s); err != nil {
		return nil, err
	}
	return s, nil
}

// mutate loads the session inside a transaction, lets fn apply one
// transition and persists it against the version read.
func (svc *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*Session) (Transition, error)) (*Session, Transition, error) {
	var (
		s *Session
		t Transition
	)
	err := svc.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		s, err = svc.store.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		expected := s.Version
		t, err = fn(s)
		if err != nil {
			return err
		}
		return svc.store.SaveTransitionTx(ctx, tx, s, expected, t)
	})
	return s, t, err
}

func (svc *Service) statusChanged(ctx context.Context, actor roadside.Actor, s *Session, t Transition, eventType roadside.ActivityEventType) {
	from := ""
	if t.FromState != nil {
		from = t.FromState.String()
	}
	svc.logger.Info("session status changed", "session", s.ID, "from", from, "to", t.ToState, "actor", actor.ID)
	svc.emit(ctx, roadside.ActivityEvent{
		EventType:  eventType,
		Actor:      actor.Ref(),
		UserID:     s.DriverID.String(),
		SessionID:  s.ID.String(),
		FromStatus: from,
		ToStatus:   t.ToState.String(),
		Metadata:   map[string]any{"reason": t.Reason, "seq": t.Seq},
	})
}

func (svc *Service) summarize(ctx context.Context, s *Session) (Summary, error) {
	names, err := svc.displayNames(ctx, []*Session{s})
	if err != nil {
		return Summary{}, err
	}
	return toSummary(s, names), nil
}

func (svc *Service) page(ctx context.Context, rows []*Session, total int, page Page) (PageResult, error) {
	names, err := svc.displayNames(ctx, rows)
	if err != nil {
		return PageResult{}, err
	}
	items := make([]Summary, 0, len(rows))
	for _, s := range rows {
		items = append(items, toSummary(s, names))
	}
	return PageResult{
		Items: items,
		Total: total,
		Page:  page.Number,
		Size:  page.Size,
	}, nil
}

func (svc *Service) displayNames(ctx context.Context, rows []*Session) (map[uuid.UUID]string, error) {
	if svc.directory == nil || len(rows) == 0 {
		return map[uuid.UUID]string{}, nil
	}
	ids := make([]uuid.UUID, 0, len(rows)*2)
	for _, s := range rows {
		ids = append(ids, s.DriverID)
		if officerID, ok := s.ParticipantOfficer(); ok {
			ids = append(ids, officerID)
		}
	}
	return svc.directory.DisplayNames(ctx, ids...)
}

func toSummary(s *Session, names map[uuid.UUID]string) Summary {
	out := Summary{
		ID:          s.ID,
		Status:      s.Status,
		Address:     s.Address,
		Reason:      s.Reason,
		Notes:       s.Notes,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		DriverID:    s.DriverID,
		DriverName:  names[s.DriverID],
		OfficerID:   s.OfficerID,
		CreatedAt:   s.CreatedAt,
		StartedAt:   s.StartedAt,
		AssignedAt:  s.AssignedAt,
		VerifiedAt:  s.VerifiedAt,
		CompletedAt: s.CompletedAt,
	}
	if officerID, ok := s.ParticipantOfficer(); ok {
		out.OfficerName = names[officerID]
	}
	return out
}

// mapError keeps domain errors intact and wraps anything else.
func (svc *Service) mapError(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	svc.logger.Error(message, "error", err)
	return roadside.NewInternalError(err, message)
}

func (svc *Service) emit(ctx context.Context, event roadside.ActivityEvent) {
	roadside.RecordActivity(ctx, svc.activitySink, svc.logger, svc.now, event)
}
