package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"keeper/internal/contracts"
	auditstore "keeper/internal/contracts/audit"
	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/platform/forensics"
	"keeper/internal/platform/logging"
	"keeper/internal/platform/metrics"
)

// DateRange selects how far back List looks, relative to the query moment.
type DateRange string

const (
	RangeToday  DateRange = "today"
	Range7Days  DateRange = "7days"
	Range30Days DateRange = "30days"
	RangeAll    DateRange = "all"
)

const defaultLimit = 50

// EventLogWiped is the forensic event written before a wipe.
const EventLogWiped = "log_wiped"

var ErrInvalidDateRange = errors.New("invalid date range")

// Filters are optional and combined with AND. Limit picks the newest entries
// before any other filter is applied.
type Filters struct {
	Limit      int
	ActionType string
	UserID     int
	DateRange  DateRange
}

type Service struct {
	repos        contracts.Repos
	sink         forensics.Sink
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	defaultLimit int
}

type Option func(*Service)

// WithSink makes WipeAll write a forensic record first.
func WithSink(sink forensics.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(logger) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for date ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithDefaultLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

func NewService(repos contracts.Repos, opts ...Option) *Service {
	s := &Service{
		repos:        repos,
		logger:       zap.NewNop(),
		now:          time.Now,
		defaultLimit: defaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts an entry. Existing entries are never touched.
func (s *Service) Append(ctx context.Context, entry domain.AuditLog) error {
	if strings.TrimSpace(entry.ActionType) == "" {
		return errors.New("action type is required")
	}
	if _, err := s.repos.Audit.WriteAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries matching f, each joined with its subject
// and performer. Missing users come back as nil instead of failing the read.
func (s *Service) List(ctx context.Context, f Filters) ([]domain.AuditLogView, error) {
	since, err := Since(f.DateRange, s.now())
	if err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	actionType := strings.TrimSpace(f.ActionType)
	if strings.EqualFold(actionType, "all") {
		actionType = ""
	}
	logs, err := s.repos.Audit.ListRecentAuditLogs(ctx, auditstore.Query{
		Limit:      limit,
		ActionType: actionType,
		UserID:     f.UserID,
		Since:      since,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return logs, nil
}

// Since returns the inclusive lower bound for r at now; zero means unbounded.
func Since(r DateRange, now time.Time) (time.Time, error) {
	switch DateRange(strings.ToLower(strings.TrimSpace(string(r)))) {
	case "", RangeAll:
		return time.Time{}, nil
	case RangeToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case Range7Days:
		return now.AddDate(0, 0, -7), nil
	case Range30Days:
		return now.AddDate(0, 0, -30), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, r)
}

// Export returns the whole log, oldest first, for an admin download.
func (s *Service) Export(ctx context.Context, identity *domain.Identity) ([]domain.AuditLogView, error) {
	if _, err := authz.NewGate(s.repos.Users).RequireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.repos.Audit.ListAllAuditLogs(ctx)
}

// WipeAll erases every entry and returns how many were deleted. The wipe is
// not recorded in the log itself. When a sink is configured the forensic
// record, carrying the exact number of deleted rows, must be stored before the
// transaction commits or nothing is deleted.
func (s *Service) WipeAll(ctx context.Context, identity *domain.Identity) (int, error) {
	var (
		admin domain.User
		n     int
	)
	err := s.repos.Tx.WithinTx(ctx, func(tx contracts.Repos) error {
		var err error
		admin, err = authz.NewGate(tx.Users).RequireAdmin(ctx, identity)
		if err != nil {
			return err
		}
		n, err = tx.Audit.DeleteAllAuditLogs(ctx)
		if err != nil {
			return fmt.Errorf("wipe audit log: %w", err)
		}
		if s.sink == nil {
			return nil
		}
		rec := forensics.Record{Event: EventLogWiped, ActorID: admin.ID, Count: n, At: s.now().UTC()}
		if err := s.sink.Write(ctx, rec); err != nil {
			s.logger.Error("audit wipe aborted: forensic record not stored", zap.Int("actor_id", admin.ID), zap.Error(err))
			return fmt.Errorf("store forensic record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.AuditWiped()
	s.logger.Warn("audit log wiped", zap.Int("actor_id", admin.ID), zap.Int("deleted", n))
	return n, nil
}
