package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/anthonycursewl/wheek-fulfillment/internal/domain/order"
	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Save(ctx context.Context, o *domain.Order) error {
	snap := o.Snapshot()
	ex := conn(ctx, r.db)

	_, err := ex.ExecContext(ctx, `
		INSERT INTO orders (id, status, total_amount, payment_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Status, snap.TotalAmount, snap.PaymentRef, snap.CreatedAt, snap.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range snap.Items {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, item_id, name, quantity, price_at_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			it.ID, snap.ID, it.ItemID, it.Name, it.Quantity, it.PriceAtOrder,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ex := conn(ctx, r.db)

	var snap domain.Snapshot
	err := ex.QueryRowContext(ctx, `
		SELECT id, status, total_amount, payment_ref, created_at, updated_at
		FROM orders WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.Status, &snap.TotalAmount, &snap.PaymentRef, &snap.CreatedAt, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := ex.QueryContext(ctx, `
		SELECT id, item_id, name, quantity, price_at_order
		FROM order_items WHERE order_id = ?
		ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.ItemSnapshot
		if err := rows.Scan(&it.ID, &it.ItemID, &it.Name, &it.Quantity, &it.PriceAtOrder); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		snap.Items = append(snap.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return domain.FromSnapshot(snap)
}

// Update persists the mutable fields of the aggregate. Items are a creation
// time snapshot and never change.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	snap := o.Snapshot()
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders SET status = ?, payment_ref = ?, updated_at = ?
		WHERE id = ?`,
		snap.Status, snap.PaymentRef, snap.UpdatedAt, snap.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}
