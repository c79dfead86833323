package domain

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// PriceLevel 表示同一价格档位下的订单集合，保证时间优先 (FIFO)
type PriceLevel struct {
	Price  decimal.Decimal
	Orders *list.List // 存储 *Order，严格按到达顺序排列
}

// NewPriceLevel 创建价格档位
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		Orders: list.New(),
	}
}

// TotalQuantity 档位内全部订单剩余数量之和
func (l *PriceLevel) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for el := l.Orders.Front(); el != nil; el = el.Next() {
		total = total.Add(el.Value.(*Order).Remaining)
	}
	return total
}

// Front 返回档位队首订单（时间优先最高者）
func (l *PriceLevel) Front() *Order {
	if el := l.Orders.Front(); el != nil {
		return el.Value.(*Order)
	}
	return nil
}

// Len 档位内订单数
func (l *PriceLevel) Len() int {
	return l.Orders.Len()
}
