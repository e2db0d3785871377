// Package fraud holds the deny-list gate and the anomaly feature builder
// consumed by the transfer coordinator.
package fraud

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/finguard/finguard/pkg/models"
)

// Gate checks counterparty account numbers against the fraud deny-list.
type Gate struct {
	db *gorm.DB
}

// NewGate creates a deny-list gate backed by the relational store.
func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// IsBlocked reports whether accountNumber is on the deny-list. A lookup
// failure is returned as an error, never as "not blocked".
func (g *Gate) IsBlocked(ctx context.Context, accountNumber string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.FraudListEntry{}).
		Where("account_number = ?", accountNumber).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check fraud list: %w", err)
	}
	return count > 0, nil
}
