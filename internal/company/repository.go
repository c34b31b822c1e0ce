package company

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/internal/domain"
)

type CompanyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, created_at
		FROM companies
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var companies []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return companies, nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	c := &domain.Company{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, created_at
		FROM companies
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Address, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return c, nil
}

func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, address, created_at)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, c.Address, c.CreatedAt)
	return err
}

func (r *CompanyRepository) Update(ctx context.Context, c *domain.Company) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE companies SET name = $2, address = $3
		WHERE id = $1
	`, c.ID, c.Name, c.Address)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *CompanyRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
