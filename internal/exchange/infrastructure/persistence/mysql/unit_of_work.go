package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
)

type unitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork 创建基于 gorm 事务的工作单元。
// 事务句柄以 tx_db 为键注入 ctx，仓储实现按该键取用。
func NewUnitOfWork(db *gorm.DB) domain.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, "tx_db", tx))
	})
}
