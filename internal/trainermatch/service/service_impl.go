package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/observability/metrics"
	"github.com/smallbiznis/gymcore/internal/ratelimit"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	"github.com/smallbiznis/gymcore/internal/trainermatch/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/smallbiznis/gymcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLockTTL  = 5 * time.Second
	defaultLockWait = 2 * time.Second
)

var errPairLockHeld = errors.New("pair lock held")

type pairLocker interface {
	Enabled() bool
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Locker   *ratelimit.Locker   `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	locker   pairLocker
	lockTTL  time.Duration
	lockWait time.Duration
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	ttl := p.Cfg.MatchLockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	wait := p.Cfg.MatchLockWait
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("trainermatch.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		locker:   p.Locker,
		lockTTL:  ttl,
		lockWait: wait,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	trainerID, err := snowflake.ParseString(strings.TrimSpace(req.TrainerID))
	if err != nil {
		return nil, domain.ErrInvalidTrainer
	}
	studentID, err := snowflake.ParseString(strings.TrimSpace(req.StudentID))
	if err != nil {
		return nil, domain.ErrInvalidStudent
	}
	if trainerID == studentID {
		return nil, domain.ErrSamePerson
	}

	status := domain.StatusActive
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.Status(strings.ToLower(raw))
		if !status.Current() {
			return nil, domain.ErrInvalidStatus
		}
	}

	release, err := s.lockPair(ctx, gymID, trainerID, studentID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	match := &domain.TrainerMatch{
		ID:        s.genID.Generate(),
		GymID:     gymID,
		TrainerID: trainerID,
		StudentID: studentID,
		Status:    status,
		Notes:     normalizeNotes(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var view *domain.MatchView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireRole(ctx, tx, gymID, trainerID, roledomain.RoleNameTrainer, domain.ErrInvalidTrainer); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, gymID, studentID, roledomain.RoleNameStudent, domain.ErrInvalidStudent); err != nil {
			return err
		}

		existing, err := s.repo.FindCurrentPair(ctx, tx, gymID, trainerID, studentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrConflict
		}

		if err := s.repo.Insert(ctx, tx, match); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrConflict
			}
			return err
		}

		view, err = s.repo.FindByID(ctx, tx, gymID, match.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.RecordMatchEvent(ctx, "conflict")
		}
		return nil, err
	}
	if view == nil {
		view = &domain.MatchView{TrainerMatch: *match}
	}

	s.metrics.RecordMatchEvent(ctx, "created")
	s.audit(ctx, gymID, "trainer_match.created", match.ID, map[string]any{
		"trainer_id": trainerID.String(),
		"student_id": studentID.String(),
		"status":     string(status),
	})
	return toResponse(view), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	matchID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	view, err := s.repo.FindByID(ctx, s.db, gymID, matchID)
	if err != nil {
		return nil, err
	}
	if view == nil || !view.Status.Current() {
		return nil, domain.ErrNotFound
	}
	return toResponse(view), nil
}

// UpdateStatus toggles a current match between active and pending. Ending a
// match goes through End.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	matchID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	target := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	switch target {
	case domain.StatusActive, domain.StatusPending:
	case domain.StatusEnded:
		return nil, domain.ErrInvalidTransition
	default:
		return nil, domain.ErrInvalidStatus
	}

	var (
		view    *domain.MatchView
		changed bool
		from    domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, gymID, matchID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if !current.Status.Current() {
			return domain.ErrInvalidTransition
		}
		from = current.Status
		if from == target {
			view = current
			return nil
		}

		ok, err := s.repo.CompareAndSetStatus(ctx, tx, gymID, matchID, from, target, nil, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}
		changed = true

		view, err = s.repo.FindByID(ctx, tx, gymID, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, domain.ErrNotFound
	}

	if changed {
		s.metrics.RecordMatchEvent(ctx, "status_changed")
		s.audit(ctx, gymID, "trainer_match.status_changed", matchID, map[string]any{
			"from": string(from),
			"to":   string(target),
		})
	}
	return toResponse(view), nil
}

// End closes a current match. The row stays as history and the pair becomes
// free for a new match.
func (s *Service) End(ctx context.Context, id string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	matchID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var view *domain.MatchView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, gymID, matchID)
		if err != nil {
			return err
		}
		if current == nil || !current.Status.Current() {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		ok, err := s.repo.CompareAndSetStatus(ctx, tx, gymID, matchID, current.Status, domain.StatusEnded, &now, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}

		view, err = s.repo.FindByID(ctx, tx, gymID, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, domain.ErrNotFound
	}

	s.metrics.RecordMatchEvent(ctx, "ended")
	s.audit(ctx, gymID, "trainer_match.ended", matchID, nil)
	return toResponse(view), nil
}

func (s *Service) ListTrainerStudents(ctx context.Context, trainerID string) ([]domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	id, err := snowflake.ParseString(strings.TrimSpace(trainerID))
	if err != nil {
		return nil, domain.ErrInvalidTrainer
	}

	items, err := s.repo.ListCurrentByTrainer(ctx, s.db, gymID, id)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// GetStudentTrainer returns the most recent current match of a student.
func (s *Service) GetStudentTrainer(ctx context.Context, studentID string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	id, err := snowflake.ParseString(strings.TrimSpace(studentID))
	if err != nil {
		return nil, domain.ErrInvalidStudent
	}

	view, err := s.repo.FindCurrentByStudent(ctx, s.db, gymID, id)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(view), nil
}

func (s *Service) ListHistory(ctx context.Context, req domain.HistoryRequest) (domain.HistoryResponse, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return domain.HistoryResponse{}, domain.ErrInvalidGym
	}

	cursor, err := pagination.DecodeTimeCursor(req.PageToken)
	if err != nil {
		return domain.HistoryResponse{}, domain.ErrInvalidPageToken
	}
	filter := domain.HistoryFilter{
		Cursor: cursor,
		Limit:  pagination.Pagination{PageSize: req.PageSize}.Limit(),
	}
	if raw := strings.TrimSpace(req.TrainerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.HistoryResponse{}, domain.ErrInvalidTrainer
		}
		filter.TrainerID = &id
	}
	if raw := strings.TrimSpace(req.StudentID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.HistoryResponse{}, domain.ErrInvalidStudent
		}
		filter.StudentID = &id
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.Status(strings.ToLower(raw))
		if status != domain.StatusEnded && !status.Current() {
			return domain.HistoryResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	items, err := s.repo.ListHistory(ctx, s.db, gymID, filter)
	if err != nil {
		return domain.HistoryResponse{}, err
	}

	views := make([]*domain.MatchView, 0, len(items))
	for i := range items {
		views = append(views, &items[i])
	}
	views, pageInfo := pagination.BuildCursorPageInfo(views, filter.Limit, func(v *domain.MatchView) string {
		return pagination.EncodeTimeCursor(v.ID, v.CreatedAt)
	})

	matches := make([]domain.Response, 0, len(views))
	for _, v := range views {
		matches = append(matches, *toResponse(v))
	}
	return domain.HistoryResponse{PageInfo: *pageInfo, Matches: matches}, nil
}

func (s *Service) requireRole(ctx context.Context, tx *gorm.DB, gymID, userID snowflake.ID, roleName string, invalid error) error {
	member, err := s.repo.FindMemberRole(ctx, tx, gymID, userID)
	if err != nil {
		return err
	}
	if member == nil || member.Status == "disabled" {
		return invalid
	}
	if member.RoleName == nil || *member.RoleName != roleName {
		return domain.ErrRoleMismatch
	}
	return nil
}

// lockPair serialises creators of the same pair across instances when redis
// is configured. A held lock is polled until lockWait runs out. The partial
// unique index still guards the single-node case.
func (s *Service) lockPair(ctx context.Context, gymID, trainerID, studentID snowflake.ID) (func(), error) {
	noop := func() {}
	if s.locker == nil || !s.locker.Enabled() {
		return noop, nil
	}

	key := ratelimit.PairLockKey(gymID.String(), trainerID.String(), studentID.String())
	token, err := backoff.Retry(ctx, func() (string, error) {
		token, acquired, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		if !acquired {
			return "", errPairLockHeld
		}
		return token, nil
	},
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.2,
			Multiplier:          2,
			MaxInterval:         250 * time.Millisecond,
		}),
		backoff.WithMaxElapsedTime(s.lockWait),
	)
	switch {
	case err == nil:
	case errors.Is(err, errPairLockHeld):
		s.metrics.RecordMatchEvent(ctx, "lock_busy")
		return nil, domain.ErrBusy
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		s.log.Warn("pair lock unavailable", zap.String("key", key), zap.Error(err))
		return noop, nil
	}

	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("pair lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *Service) audit(ctx context.Context, gymID snowflake.ID, action string, matchID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := matchID.String()
	if err := s.auditSvc.AuditLog(ctx, &gymID, "", nil, action, "trainer_match", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(v *domain.MatchView) *domain.Response {
	return &domain.Response{
		ID:          v.ID.String(),
		GymID:       v.GymID.String(),
		TrainerID:   v.TrainerID.String(),
		TrainerName: v.TrainerName,
		StudentID:   v.StudentID.String(),
		StudentName: v.StudentName,
		Status:      string(v.Status),
		Notes:       v.Notes,
		EndedAt:     v.EndedAt,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func toResponses(items []domain.MatchView) []domain.Response {
	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, *toResponse(&items[i]))
	}
	return out
}
