package lookups

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, kind Kind, filters shared.ListFilters) ([]Entry, int, error)
	Get(ctx context.Context, kind Kind, id int64) (Entry, error)
	Create(ctx context.Context, kind Kind, entry Entry) (Entry, error)
	Update(ctx context.Context, kind Kind, id int64, entry Entry) error
	Delete(ctx context.Context, kind Kind, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, kind Kind, filters shared.ListFilters) ([]Entry, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+kind.table()+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, COALESCE(description, '') FROM ` + kind.table() + where + ` ORDER BY name`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Description); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, kind Kind, id int64) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(description, '') FROM `+kind.table()+` WHERE id = $1`, id).Scan(&e.ID, &e.Name, &e.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (r *repository) Create(ctx context.Context, kind Kind, entry Entry) (Entry, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO `+kind.table()+` (name, description) VALUES ($1, NULLIF($2, '')) RETURNING id`, entry.Name, entry.Description).Scan(&entry.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Entry{}, shared.ErrDuplicate
		}
		return Entry{}, err
	}
	return entry, nil
}

func (r *repository) Update(ctx context.Context, kind Kind, id int64, entry Entry) error {
	tag, err := r.pool.Exec(ctx, `UPDATE `+kind.table()+` SET name = $1, description = NULLIF($2, '') WHERE id = $3`, entry.Name, entry.Description, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, kind Kind, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+kind.table()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
