package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// ErrVersionConflict signals a stale optimistic-concurrency version on write.
var ErrVersionConflict = errors.New("case version conflict")

// CaseFilter captures list query parameters. Nil filters are unconstrained.
type CaseFilter struct {
	Status     *domain.CaseStatus
	Priority   *domain.CasePriority
	TicketType *string
	Limit      int
}

// CaseRepository encapsulates case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	GetByProtocol(ctx context.Context, protocol string) (*domain.Case, error)
	GetBySalesforceID(ctx context.Context, salesforceID string) (*domain.Case, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseColumns = `case_id, protocol, ticket_type, category, subcategory, priority, severity,
       customer_id, customer_name, customer_segment, status, subject, description, resolution,
       channel, channel_name, salesforce_case_id, salesforce_case_number, ticket_characteristics,
       created_at, created_by, updated_at, updated_by, resolved_at, resolved_by, version`

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (protocol, ticket_type, category, subcategory, priority, severity,
            customer_id, customer_name, customer_segment, status, subject, description, resolution,
            channel, channel_name, salesforce_case_id, salesforce_case_number, ticket_characteristics,
            created_by, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
        RETURNING case_id, created_at, updated_at, version`
	if err := r.pool.QueryRow(ctx, query,
		c.Protocol,
		c.TicketType,
		c.Category,
		c.Subcategory,
		c.Priority,
		nullableSeverity(c.Severity),
		c.CustomerID,
		c.CustomerName,
		c.CustomerSegment,
		c.Status,
		c.Subject,
		c.Description,
		c.Resolution,
		c.Channel,
		c.ChannelName,
		c.SalesforceCaseID,
		c.SalesforceCaseNumber,
		c.Characteristics,
		c.CreatedBy,
		c.UpdatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.Version); err != nil {
		return err
	}
	return r.insertChildren(ctx, c)
}

// Update persists case mutations guarded by the version read by the caller.
// A zero row count means another writer won the race since that read.
func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET ticket_type=$1, category=$2, subcategory=$3, priority=$4, severity=$5,
            customer_id=$6, customer_name=$7, customer_segment=$8, status=$9, subject=$10,
            description=$11, resolution=$12, channel=$13, channel_name=$14,
            salesforce_case_id=$15, salesforce_case_number=$16, ticket_characteristics=$17,
            updated_by=$18, resolved_at=$19, resolved_by=$20,
            updated_at=NOW(), version=version+1
        WHERE case_id=$21 AND version=$22
        RETURNING updated_at, version`
	err := r.pool.QueryRow(ctx, query,
		c.TicketType,
		c.Category,
		c.Subcategory,
		c.Priority,
		nullableSeverity(c.Severity),
		c.CustomerID,
		c.CustomerName,
		c.CustomerSegment,
		c.Status,
		c.Subject,
		c.Description,
		c.Resolution,
		c.Channel,
		c.ChannelName,
		c.SalesforceCaseID,
		c.SalesforceCaseNumber,
		c.Characteristics,
		c.UpdatedBy,
		c.ResolvedAt,
		c.ResolvedBy,
		c.ID,
		c.Version,
	).Scan(&c.UpdatedAt, &c.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		return err
	}
	return r.insertChildren(ctx, c)
}

func (r *caseRepository) GetByProtocol(ctx context.Context, protocol string) (*domain.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE protocol=$1`, caseColumns)
	return r.fetchSingle(ctx, query, protocol)
}

func (r *caseRepository) GetBySalesforceID(ctx context.Context, salesforceID string) (*domain.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE salesforce_case_id=$1`, caseColumns)
	return r.fetchSingle(ctx, query, salesforceID)
}

func (r *caseRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Case, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	c, err := scanCase(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.TicketType != nil {
		args = append(args, *filter.TicketType)
		clauses = append(clauses, fmt.Sprintf("ticket_type=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM cases WHERE %s ORDER BY created_at DESC LIMIT %d`,
		caseColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if err := r.loadChildren(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// insertChildren persists notes and related parties that have no ID yet.
// Children are append-only; existing rows are never touched.
func (r *caseRepository) insertChildren(ctx context.Context, c *domain.Case) error {
	for i := range c.Notes {
		note := &c.Notes[i]
		if note.ID != "" {
			continue
		}
		const query = `
            INSERT INTO case_notes (case_id, text, author)
            VALUES ($1,$2,$3)
            RETURNING note_id, created_at`
		if err := r.pool.QueryRow(ctx, query, c.ID, note.Text, note.Author).
			Scan(&note.ID, &note.CreatedAt); err != nil {
			return err
		}
		note.CaseID = c.ID
	}
	for i := range c.RelatedParties {
		party := &c.RelatedParties[i]
		if party.ID != "" {
			continue
		}
		const query = `
            INSERT INTO case_related_parties (case_id, party_type, party_id, party_name, role)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at`
		if err := r.pool.QueryRow(ctx, query, c.ID, party.ReferredType, party.PartyID, party.Name, party.Role).
			Scan(&party.ID, &party.CreatedAt); err != nil {
			return err
		}
		party.CaseID = c.ID
	}
	return nil
}

func (r *caseRepository) loadChildren(ctx context.Context, c *domain.Case) error {
	noteRows, err := r.pool.Query(ctx,
		`SELECT note_id, case_id, text, author, created_at
         FROM case_notes WHERE case_id=$1 ORDER BY created_at ASC`, c.ID)
	if err != nil {
		return err
	}
	defer noteRows.Close()
	c.Notes = nil
	for noteRows.Next() {
		var note domain.CaseNote
		if err := noteRows.Scan(&note.ID, &note.CaseID, &note.Text, &note.Author, &note.CreatedAt); err != nil {
			return err
		}
		c.Notes = append(c.Notes, note)
	}
	if err := noteRows.Err(); err != nil {
		return err
	}

	partyRows, err := r.pool.Query(ctx,
		`SELECT id, case_id, party_type, party_id, party_name, role, created_at
         FROM case_related_parties WHERE case_id=$1 ORDER BY created_at ASC`, c.ID)
	if err != nil {
		return err
	}
	defer partyRows.Close()
	c.RelatedParties = nil
	for partyRows.Next() {
		var party domain.RelatedParty
		if err := partyRows.Scan(&party.ID, &party.CaseID, &party.ReferredType, &party.PartyID, &party.Name, &party.Role, &party.CreatedAt); err != nil {
			return err
		}
		c.RelatedParties = append(c.RelatedParties, party)
	}
	return partyRows.Err()
}

func scanCase(row pgx.Row) (*domain.Case, error) {
	var c domain.Case
	var severity *string
	if err := row.Scan(
		&c.ID,
		&c.Protocol,
		&c.TicketType,
		&c.Category,
		&c.Subcategory,
		&c.Priority,
		&severity,
		&c.CustomerID,
		&c.CustomerName,
		&c.CustomerSegment,
		&c.Status,
		&c.Subject,
		&c.Description,
		&c.Resolution,
		&c.Channel,
		&c.ChannelName,
		&c.SalesforceCaseID,
		&c.SalesforceCaseNumber,
		&c.Characteristics,
		&c.CreatedAt,
		&c.CreatedBy,
		&c.UpdatedAt,
		&c.UpdatedBy,
		&c.ResolvedAt,
		&c.ResolvedBy,
		&c.Version,
	); err != nil {
		return nil, err
	}
	if severity != nil {
		c.Severity = domain.CaseSeverity(*severity)
	}
	return &c, nil
}

func nullableSeverity(severity domain.CaseSeverity) *string {
	if severity == "" {
		return nil
	}
	s := string(severity)
	return &s
}
