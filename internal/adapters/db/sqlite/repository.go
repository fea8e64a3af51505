package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/zeebo/errs"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Repository implements domain.Repository on gorm. A Repository returned by
// InTx is bound to that transaction.
type Repository struct {
	db *gorm.DB
}

var _ domain.Repository = (*Repository)(nil)

// Open connects to the sqlite file at path with foreign keys enforced.
// The pool is limited to one connection since sqlite serialises writers.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx domain.Repository) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return domain.ErrInternal.Wrap(tx.Error)
	}
	if err := fn(&Repository{db: tx}); err != nil {
		return errs.Combine(err, tx.Rollback().Error)
	}
	return internal(tx.Commit().Error)
}

// notFound turns gorm's missing-row error into the domain class.
func notFound(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound.New("%s not found", what)
	}
	return internal(err)
}

func internal(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrValidation.New("%s already exists", uniqueColumn(err))
	}
	return domain.ErrInternal.Wrap(err)
}

// uniqueColumn extracts "email" from "UNIQUE constraint failed: users.email".
func uniqueColumn(err error) string {
	msg := err.Error()
	idx := strings.LastIndex(msg, ".")
	if idx < 0 || idx == len(msg)-1 {
		return "value"
	}
	column := msg[idx+1:]
	if end := strings.IndexAny(column, " )"); end >= 0 {
		column = column[:end]
	}
	return column
}

// affected reports a not found error when a write touched no rows.
func affected(res *gorm.DB, what string) error {
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound.New("%s not found", what)
	}
	return nil
}
