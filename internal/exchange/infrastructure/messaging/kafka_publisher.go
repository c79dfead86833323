// Package messaging 提供基于 Kafka 的交易所事件发布实现
package messaging

import (
	"context"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
	"github.com/wyfcoding/exchangesim/pkg/mq"
)

// KafkaEventPublisher 将交易所领域事件写入 Kafka。
// 按市场标识作为消息 Key，保证同一市场的事件落在同一分区内有序。
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

func NewKafkaEventPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) PublishTradeExecuted(ctx context.Context, event *domain.TradeExecutedEvent) error {
	return p.producer.SendMessage(ctx, domain.TopicTradeExecuted, event.Symbol, event)
}

func (p *KafkaEventPublisher) PublishBookChanged(ctx context.Context, event *domain.BookChangedEvent) error {
	return p.producer.SendMessage(ctx, domain.TopicBookChanged, event.Symbol, event)
}
