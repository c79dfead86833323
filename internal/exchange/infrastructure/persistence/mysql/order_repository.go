package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建 MySQL 订单仓储
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx_db").(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.dbFor(ctx).Create(toOrderModel(order)).Error
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.dbFor(ctx).Model(&OrderModel{}).
		Where("order_id = ?", order.OrderID).
		Updates(map[string]any{
			"remaining": order.Remaining,
			"status":    int8(order.Status),
			"sequence":  order.Sequence,
		}).Error
}

func (r *orderRepository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	var m OrderModel
	err := r.dbFor(ctx).Where("order_id = ?", orderID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainOrder(&m), nil
}

func (r *orderRepository) FindOpenBySymbol(ctx context.Context, symbol string) ([]*domain.Order, error) {
	var models []*OrderModel
	err := r.dbFor(ctx).
		Where("symbol = ? AND status IN ?", symbol, []int8{
			int8(domain.StatusOpen),
			int8(domain.StatusPartiallyFilled),
		}).
		Order("sequence ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(models))
	for _, m := range models {
		orders = append(orders, toDomainOrder(m))
	}
	return orders, nil
}
