package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
)

type ShipmentRepository struct {
	db *sql.DB
}

func NewShipmentRepository(db *sql.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// Create relies on the UNIQUE index on shipments.order_id to enforce the
// one-shipment-per-order rule.
func (r *ShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	ex := conn(ctx, r.db)

	_, err := ex.ExecContext(ctx, `
		INSERT INTO shipments
			(id, order_id, status, address_line1, address_line2, city, region, country, postal_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OrderID, s.Status,
		s.Address.Line1, s.Address.Line2, s.Address.City, s.Address.Region, s.Address.Country, s.Address.PostalCode,
		s.CreatedAt, s.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}

	for _, it := range s.Items {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO shipment_items (shipment_id, item_id, name, quantity)
			VALUES (?, ?, ?, ?)`,
			s.ID, it.ItemID, it.Name, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert shipment item: %w", err)
		}
	}
	return nil
}

func (r *ShipmentRepository) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	return r.findBy(ctx, "id", id)
}

func (r *ShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return r.findBy(ctx, "order_id", orderID)
}

func (r *ShipmentRepository) Update(ctx context.Context, s *domain.Shipment) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE shipments SET status = ?, updated_at = ?
		WHERE id = ?`,
		s.Status, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ShipmentRepository) findBy(ctx context.Context, column, value string) (*domain.Shipment, error) {
	ex := conn(ctx, r.db)

	var s domain.Shipment
	err := ex.QueryRowContext(ctx, `
		SELECT id, order_id, status, address_line1, address_line2, city, region, country, postal_code, created_at, updated_at
		FROM shipments WHERE `+column+` = ?`, value,
	).Scan(
		&s.ID, &s.OrderID, &s.Status,
		&s.Address.Line1, &s.Address.Line2, &s.Address.City, &s.Address.Region, &s.Address.Country, &s.Address.PostalCode,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query shipment: %w", err)
	}

	rows, err := ex.QueryContext(ctx, `
		SELECT item_id, name, quantity
		FROM shipment_items WHERE shipment_id = ?`, s.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query shipment items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ItemID, &it.Name, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan shipment item: %w", err)
		}
		s.Items = append(s.Items, it)
	}
	return &s, rows.Err()
}
