package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for callers that need raw access,
// such as tests and migrations.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// InTx runs fn inside one database transaction with an explicit timeout.
// fn receives the deadline-bearing context and a repository scoped to the
// transaction; every statement inside fn must use that context so the
// budget covers the whole unit of work. Returning an error rolls every
// write back. Settlement operations that touch balances must go through
// here so partial writes are never observable.
func (r *Repository) InTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, txRepo *Repository) error) error {
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return r.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		return fn(txCtx, &Repository{db: tx})
	})
}
