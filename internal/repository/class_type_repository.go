package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

const classTypeColumns = `id, name, price, description, active, created_at, updated_at`

var classTypeSorts = map[string]string{
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
}

// ClassTypeRepository persists course packages and their price history.
type ClassTypeRepository struct {
	db *sqlx.DB
}

// NewClassTypeRepository constructs the repository.
func NewClassTypeRepository(db *sqlx.DB) *ClassTypeRepository {
	return &ClassTypeRepository{db: db}
}

// List returns class types matching the filter with the total count.
func (r *ClassTypeRepository) List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, int, error) {
	var where whereBuilder
	if filter.Search != "" {
		where.add("LOWER(name) LIKE $%d", likePattern(filter.Search))
	}
	if filter.Active != nil {
		where.add("active = $%d", *filter.Active)
	}

	query := `SELECT ` + classTypeColumns + ` FROM class_types` + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, classTypeSorts, "created_at") + pageClause(filter.ListOptions)
	var items []models.ClassType
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list class types: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM class_types`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count class types: %w", err)
	}
	return items, total, nil
}

// FindByID returns a class type by ID.
func (r *ClassTypeRepository) FindByID(ctx context.Context, id string) (*models.ClassType, error) {
	var item models.ClassType
	if err := r.db.GetContext(ctx, &item, `SELECT `+classTypeColumns+` FROM class_types WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a class type.
func (r *ClassTypeRepository) Create(ctx context.Context, item *models.ClassType) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO class_types (id, name, price, description, active, created_at, updated_at) VALUES (:id, :name, :price, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create class type: %w", err)
	}
	return nil
}

// Update writes the descriptive fields of a class type. Price is left untouched.
func (r *ClassTypeRepository) Update(ctx context.Context, item *models.ClassType) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_types SET name = :name, description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update class type: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a class type.
func (r *ClassTypeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class type: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountStudents returns how many students reference the class type.
func (r *ClassTypeRepository) CountStudents(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE class_type_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count class type students: %w", err)
	}
	return count, nil
}

// UpdatePrice changes the list price and writes a price log row in one
// transaction. Student contract snapshots are not touched.
func (r *ClassTypeRepository) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, operator string) (entry *models.ClassTypePriceLog, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin price transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current decimal.Decimal
	if err = tx.GetContext(ctx, &current, `SELECT price FROM class_types WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock class type: %w", err)
	}

	now := time.Now().UTC()
	entry = &models.ClassTypePriceLog{
		ID:          uuid.NewString(),
		ClassTypeID: id,
		OldPrice:    current,
		NewPrice:    price,
		Operator:    operator,
		CreatedAt:   now,
	}
	const insertLog = `INSERT INTO class_type_price_logs (id, class_type_id, old_price, new_price, operator, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertLog, entry.ID, id, current, price, operator, now); err != nil {
		return nil, fmt.Errorf("insert price log: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE class_types SET price = $2, updated_at = $3 WHERE id = $1`, id, price, now); err != nil {
		return nil, fmt.Errorf("update class type price: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit price change: %w", err)
	}
	return entry, nil
}

// ListPriceLogs returns the price history of a class type, newest first.
func (r *ClassTypeRepository) ListPriceLogs(ctx context.Context, id string) ([]models.ClassTypePriceLog, error) {
	const query = `SELECT id, class_type_id, old_price, new_price, operator, created_at FROM class_type_price_logs WHERE class_type_id = $1 ORDER BY created_at DESC`
	var logs []models.ClassTypePriceLog
	if err := r.db.SelectContext(ctx, &logs, query, id); err != nil {
		return nil, fmt.Errorf("list price logs: %w", err)
	}
	return logs, nil
}
