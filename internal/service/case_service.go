package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/salesforce"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// CaseService orchestrates the case lifecycle: local persistence is
// authoritative and must succeed; CRM synchronization is best-effort and
// never blocks or fails the caller.
type CaseService struct {
	cases      repository.CaseRepository
	backlog    repository.SyncBacklogRepository
	gateway    salesforce.Gateway
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	CaseRepo    repository.CaseRepository
	BacklogRepo repository.SyncBacklogRepository
	Gateway     salesforce.Gateway
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// CaseListFilter carries optional TMF-string filters for listing.
type CaseListFilter struct {
	Status     *string
	Priority   *string
	TicketType *string
	Limit      int
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseService{
		cases:      deps.CaseRepo,
		backlog:    deps.BacklogRepo,
		gateway:    deps.Gateway,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// CreateCase persists a new case locally and then pushes it to the CRM.
// The returned case always reflects durable local state; remote identifiers
// are present only when the push succeeded.
func (s *CaseService) CreateCase(ctx context.Context, input CaseCreateInput) (*domain.Case, error) {
	c := caseFromCreateInput(input)

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("case saved locally", zap.String("protocol", c.Protocol))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCaseCreated,
		Protocol: c.Protocol,
		Payload: events.CaseCreatedPayload{
			Subject:    c.Subject,
			Priority:   c.Priority,
			TicketType: c.TicketType,
			CustomerID: c.CustomerID,
		},
	})

	s.syncCreate(ctx, c)
	return c, nil
}

// GetCase returns a case by protocol from the local store only.
func (s *CaseService) GetCase(ctx context.Context, protocol string) (*domain.Case, error) {
	c, err := s.cases.GetByProtocol(ctx, protocol)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("case", map[string]any{"id": protocol})
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCases returns cases matching the provided filters, local reads only.
func (s *CaseService) ListCases(ctx context.Context, filter CaseListFilter) ([]domain.Case, error) {
	repoFilter := repository.CaseFilter{
		TicketType: filter.TicketType,
		Limit:      filter.Limit,
	}
	if filter.Status != nil {
		status := domain.StatusFromTMF(*filter.Status)
		repoFilter.Status = &status
	}
	if filter.Priority != nil {
		priority := domain.PriorityFromTMF(*filter.Priority)
		repoFilter.Priority = &priority
	}
	return s.cases.ListWithFilter(ctx, repoFilter)
}

// UpdateCase applies a partial update, persists it, and pushes the change to
// the CRM when the case is already linked. A case that never synced gets an
// opportunistic create re-attempt instead.
func (s *CaseService) UpdateCase(ctx context.Context, protocol string, input CaseUpdateInput) (*domain.Case, error) {
	c, err := s.GetCase(ctx, protocol)
	if err != nil {
		return nil, err
	}

	oldStatus := c.Status
	applyUpdate(c, input)

	if c.Status == domain.CaseStatusResolved && c.ResolvedAt == nil {
		now := time.Now()
		c.ResolvedAt = &now
	}

	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("case was modified concurrently", map[string]any{"id": protocol})
		}
		return nil, err
	}

	if oldStatus != c.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventCaseStatusChanged,
			Protocol: c.Protocol,
			Payload: events.CaseStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: c.Status,
			},
		})
	}

	if c.SalesforceCaseID != "" {
		if err := s.gateway.UpdateCase(ctx, c.SalesforceCaseID, c); err != nil {
			s.logger.Warn("salesforce update sync failed",
				zap.String("protocol", c.Protocol),
				zap.Error(err),
			)
			s.recordSync("update", "failure")
		} else {
			s.recordSync("update", "success")
		}
	} else {
		// Never synced; re-attempt the create push now.
		s.syncCreate(ctx, c)
	}

	return c, nil
}

// CancelCase transitions a case to CANCELLED. Cancelling an already
// cancelled case is a no-op success. No remote call is made.
func (s *CaseService) CancelCase(ctx context.Context, protocol string) error {
	c, err := s.GetCase(ctx, protocol)
	if err != nil {
		return err
	}
	if c.Status == domain.CaseStatusCancelled {
		return nil
	}

	previous := c.Status
	c.Status = domain.CaseStatusCancelled
	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("case was modified concurrently", map[string]any{"id": protocol})
		}
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCaseCancelled,
		Protocol: c.Protocol,
		Payload:  events.CaseCancelledPayload{PreviousStatus: previous},
	})
	return nil
}

// PendingSyncCount reports the number of cases awaiting a successful CRM sync.
func (s *CaseService) PendingSyncCount(ctx context.Context) (int64, error) {
	if s.backlog == nil {
		return 0, nil
	}
	return s.backlog.PendingCount(ctx)
}

// syncCreate pushes the case to the CRM and folds the remote identifiers
// back into the local record. All failure modes degrade to a local-only
// case plus a backlog entry; nothing is returned to fail the caller.
func (s *CaseService) syncCreate(ctx context.Context, c *domain.Case) {
	result := s.gateway.CreateCase(ctx, c)
	if !result.Success || result.ID == "" {
		s.logger.Warn("case created locally but salesforce sync degraded",
			zap.String("protocol", c.Protocol),
			zap.Strings("errors", result.Errors),
		)
		s.recordSync("create", "failure")
		s.markPending(ctx, c.Protocol)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventCaseSyncFailed,
			Protocol: c.Protocol,
			Payload:  events.CaseSyncFailedPayload{Operation: "create", Errors: result.Errors},
		})
		return
	}

	c.SalesforceCaseID = result.ID
	if remote, err := s.gateway.GetCase(ctx, result.ID); err == nil && remote != nil {
		c.SalesforceCaseNumber = remote.CaseNumber
	}

	if err := s.foldBack(ctx, c); err != nil {
		s.logger.Warn("failed to persist salesforce linkage",
			zap.String("protocol", c.Protocol),
			zap.Error(err),
		)
	}

	s.logger.Info("case synchronized with salesforce",
		zap.String("protocol", c.Protocol),
		zap.String("salesforce_case_id", c.SalesforceCaseID),
	)
	s.recordSync("create", "success")
	s.clearPending(ctx, c.Protocol)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCaseSynced,
		Protocol: c.Protocol,
		Payload: events.CaseSyncedPayload{
			SalesforceCaseID:     c.SalesforceCaseID,
			SalesforceCaseNumber: c.SalesforceCaseNumber,
		},
	})
}

// foldBack persists the remote identifiers, retrying once against a fresh
// copy when a concurrent update won the version race.
func (s *CaseService) foldBack(ctx context.Context, c *domain.Case) error {
	err := s.cases.Update(ctx, c)
	if !errors.Is(err, repository.ErrVersionConflict) {
		return err
	}

	fresh, loadErr := s.cases.GetByProtocol(ctx, c.Protocol)
	if loadErr != nil {
		return loadErr
	}
	fresh.SalesforceCaseID = c.SalesforceCaseID
	fresh.SalesforceCaseNumber = c.SalesforceCaseNumber
	if err := s.cases.Update(ctx, fresh); err != nil {
		return err
	}
	c.Version = fresh.Version
	c.UpdatedAt = fresh.UpdatedAt
	return nil
}

func (s *CaseService) markPending(ctx context.Context, protocol string) {
	if s.backlog == nil {
		return
	}
	if err := s.backlog.MarkPending(ctx, protocol); err != nil {
		s.logger.Warn("failed to record sync backlog entry", zap.String("protocol", protocol), zap.Error(err))
	}
}

func (s *CaseService) clearPending(ctx context.Context, protocol string) {
	if s.backlog == nil {
		return
	}
	if err := s.backlog.ClearPending(ctx, protocol); err != nil {
		s.logger.Warn("failed to clear sync backlog entry", zap.String("protocol", protocol), zap.Error(err))
	}
}

func (s *CaseService) recordSync(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSync(operation, outcome)
	}
}

func (s *CaseService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
