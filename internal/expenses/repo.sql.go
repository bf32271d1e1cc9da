package expenses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists expense data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, '') FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(description, '') FROM expense_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, err
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO expense_categories (name, description) VALUES ($1, NULLIF($2, '')) RETURNING id`,
		category.Name, category.Description).Scan(&category.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Category{}, ErrCategoryExists
		}
		return Category{}, err
	}
	return category, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, id int64, category Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE expense_categories SET name=$1, description=NULLIF($2, '') WHERE id=$3`,
		category.Name, category.Description, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCategoryExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expense_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Expense, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, category_id, description, amount, incurred_on, created_by, created_at
FROM expenses
WHERE ($1 = 0 OR category_id = $1)
  AND ($2::timestamptz IS NULL OR incurred_on >= $2)
  AND ($3::timestamptz IS NULL OR incurred_on <= $3)
ORDER BY incurred_on DESC, id DESC
LIMIT $4`, filter.CategoryID, filter.From, filter.To, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	expenses := []Expense{}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Description, &e.Amount, &e.IncurredOn, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Expense, error) {
	var e Expense
	err := r.pool.QueryRow(ctx, `SELECT id, category_id, description, amount, incurred_on, created_by, created_at
FROM expenses WHERE id = $1`, id).
		Scan(&e.ID, &e.CategoryID, &e.Description, &e.Amount, &e.IncurredOn, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrExpenseNotFound
		}
		return Expense{}, err
	}
	return e, nil
}

func (r *Repository) Create(ctx context.Context, expense Expense) (Expense, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses (category_id, description, amount, incurred_on, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		expense.CategoryID, expense.Description, expense.Amount, expense.IncurredOn, expense.CreatedBy, expense.CreatedAt).Scan(&expense.ID)
	if err != nil {
		return Expense{}, err
	}
	return expense, nil
}

func (r *Repository) Update(ctx context.Context, id int64, expense Expense) error {
	tag, err := r.pool.Exec(ctx, `UPDATE expenses SET category_id=$1, description=$2, amount=$3, incurred_on=$4 WHERE id=$5`,
		expense.CategoryID, expense.Description, expense.Amount, expense.IncurredOn, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}
