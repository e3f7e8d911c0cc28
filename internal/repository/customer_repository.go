package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// CustomerRepository reads requester and company records for tier lookups.
type CustomerRepository interface {
	CreateContact(ctx context.Context, contact *domain.Contact) error
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
	CreateCompany(ctx context.Context, company *domain.Company) error
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository builds repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) CreateContact(ctx context.Context, contact *domain.Contact) error {
	const query = `
        INSERT INTO contacts (id, name, email, company_id, tier)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.CompanyID,
		contact.Tier,
	).Scan(&contact.CreatedAt)
}

func (r *customerRepository) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	const query = `SELECT id, name, email, company_id, tier, created_at FROM contacts WHERE id=$1`
	var contact domain.Contact
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.CompanyID,
		&contact.Tier,
		&contact.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *customerRepository) CreateCompany(ctx context.Context, company *domain.Company) error {
	const query = `INSERT INTO companies (id, name, tier) VALUES ($1,$2,$3) RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query, company.ID, company.Name, company.Tier).Scan(&company.CreatedAt)
}

func (r *customerRepository) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	const query = `SELECT id, name, tier, created_at FROM companies WHERE id=$1`
	var company domain.Company
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.Tier,
		&company.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &company, nil
}
