package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meypark-backend/internal/model"
)

// Store defines the database operations of the invoicing service.
type Store interface {
	SaveTransaction(ctx context.Context, tx *model.Transaction) error
	Transaction(ctx context.Context, id string) (*model.Transaction, error)
	RecordInvoice(ctx context.Context, inv *model.Invoice, url string) error
	Stats(ctx context.Context) (Stats, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// SaveTransaction inserts a transaction or refreshes its payment fields.
// Invoice fields of an existing row are never overwritten.
func (s *gormStore) SaveTransaction(ctx context.Context, tx *model.Transaction) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plate", "zone_id", "timestamp", "amount", "payment_method",
			"kiosk_id", "is_extend", "minutes", "updated_at",
		}),
	}).Create(tx).Error
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Transaction returns the transaction with the given id, or nil when absent.
func (s *gormStore) Transaction(ctx context.Context, id string) (*model.Transaction, error) {
	var tx model.Transaction
	err := s.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	return &tx, nil
}

// RecordInvoice stamps the transaction with the invoice and stores the billing
// record in one database transaction. The stamp only applies to a transaction
// without an invoice, otherwise ErrAlreadyInvoiced is returned.
func (s *gormStore) RecordInvoice(ctx context.Context, inv *model.Invoice, url string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Transaction{}).
			Where("id = ? AND (invoice_id = '' OR invoice_id IS NULL)", inv.TransactionID).
			Updates(map[string]any{
				"invoice_id":           inv.InvoiceID,
				"invoice_generated_at": inv.GeneratedAt,
				"invoice_url":          url,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to stamp transaction %s: %w", inv.TransactionID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyInvoiced
		}
		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("failed to create invoice %s: %w", inv.InvoiceID, err)
		}
		return nil
	})
}

// Stats aggregates counts and amounts over all transactions.
func (s *gormStore) Stats(ctx context.Context) (Stats, error) {
	var row struct {
		Total          int64
		Invoiced       int64
		TotalAmount    float64
		InvoicedAmount float64
	}
	err := s.db.WithContext(ctx).Model(&model.Transaction{}).Select(
		"COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN invoice_id <> '' THEN 1 ELSE 0 END), 0) AS invoiced, " +
			"COALESCE(SUM(amount), 0) AS total_amount, " +
			"COALESCE(SUM(CASE WHEN invoice_id <> '' THEN amount ELSE 0 END), 0) AS invoiced_amount",
	).Scan(&row).Error
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return Stats{
		TotalTransactions:    row.Total,
		InvoicedTransactions: row.Invoiced,
		TotalAmount:          row.TotalAmount,
		InvoicedAmount:       row.InvoicedAmount,
	}, nil
}
