package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/exchangesim/internal/settlement/domain"
)

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建 MySQL 结算记录仓储
func NewRecordRepository(db *gorm.DB) domain.RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx_db").(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *recordRepository) Save(ctx context.Context, record *domain.Record) error {
	return r.dbFor(ctx).Create(record).Error
}

func (r *recordRepository) GetByTradeID(ctx context.Context, tradeID string) (*domain.Record, error) {
	var record domain.Record
	err := r.dbFor(ctx).Where("trade_id = ?", tradeID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// WithTx 在数据库事务中执行 fn，并将事务句柄注入 ctx（key: tx_db），
// 供同事务内的其他仓储复用。
func (r *recordRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, "tx_db", tx))
	})
}
