package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/anthonycursewl/wheek-fulfillment/internal/domain/stock"
	"github.com/shopspring/decimal"
)

type StockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, price, quantity, updated_at
		FROM items WHERE id = ?`, id,
	)
	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (r *StockRepository) FindWithIDIn(ctx context.Context, ids []string) ([]*domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, price, quantity, updated_at
		FROM items WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *StockRepository) Update(ctx context.Context, item *domain.Item) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE items SET name = ?, price = ?, quantity = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.Price.StringFixed(2), item.Quantity, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// DecreaseStock is a conditional decrement: the WHERE guard makes the
// sufficiency check and the write one atomic statement, so two concurrent
// reservations cannot both pass it.
func (r *StockRepository) DecreaseStock(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity - ?, updated_at = NOW()
		WHERE id = ? AND quantity >= ?`,
		quantity, itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrease stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := r.FindByID(ctx, itemID); err != nil {
			return err
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *StockRepository) IncreaseStock(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity + ?, updated_at = NOW()
		WHERE id = ?`,
		quantity, itemID,
	)
	if err != nil {
		return fmt.Errorf("increase stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func scanItem(scan func(dest ...any) error) (*domain.Item, error) {
	var item domain.Item
	var price string
	if err := scan(&item.ID, &item.Name, &price, &item.Quantity, &item.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	item.Price = parsed
	return &item, nil
}
