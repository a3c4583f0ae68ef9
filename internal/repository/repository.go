// Package repository implements the domain repositories on PostgreSQL via GORM.
//
// A transaction opened by Transactor travels in the context; every repository
// method picks it up through conn so that services compose several writes
// atomically without passing *gorm.DB around.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

type txKey struct{}

type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction runs fn in a transaction. A call nested inside another
// transaction joins it rather than opening a savepoint.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

type base struct {
	db *gorm.DB
}

func (b base) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return b.db.WithContext(ctx)
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// notFound swaps gorm.ErrRecordNotFound for the domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// paginate counts q, then applies the normalized page window.
func paginate(q *gorm.DB, page, size int) (*gorm.DB, int64, int, int, error) {
	page, size = domain.Page(page, size)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, 0, 0, err
	}
	return q.Offset((page - 1) * size).Limit(size), total, page, size, nil
}

// nextNumber formats the next value of seq as <prefix><year><6 digits>,
// e.g. P2025000042.
func nextNumber(db *gorm.DB, seq, prefix string) (string, error) {
	var n int64
	if err := db.Raw("SELECT nextval(?::regclass)", seq).Scan(&n).Error; err != nil {
		return "", fmt.Errorf("allocating %s number: %w", prefix, err)
	}
	return fmt.Sprintf("%s%d%06d", prefix, time.Now().UTC().Year(), n), nil
}
