package domain

import (
	"errors"
	"fmt"
	"strings"
)

// 校验与市场状态错误：同步拒绝，不产生任何副作用
var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrPriceNotAligned    = errors.New("price is not aligned to market price increment")
	ErrQuantityNotAligned = errors.New("quantity is not aligned to market quantity increment")
	ErrQuantityTooLarge   = errors.New("quantity exceeds market max quantity")
	ErrMarketNotFound     = errors.New("market not found")
	ErrMarketInactive     = errors.New("market is inactive")
	ErrEngineHalted       = errors.New("matching engine halted")
	ErrEngineBusy         = errors.New("matching engine queue full")
	ErrEngineStopped      = errors.New("matching engine stopped")
)

// SettlementError 表示撮合完成后的部分结算失败。
// 撮合本身不可回滚：已成交数量不会被撤销，调用方需根据
// Committed / Failed / Unprocessed 进行外部对账。
type SettlementError struct {
	// Committed 已成功结算的成交 ID
	Committed []string
	// Failed 结算失败的成交 ID
	Failed string
	// Unprocessed 因前序失败而未尝试结算的成交 ID
	Unprocessed []string
	// Err 底层结算错误
	Err error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement failed for trade %s (committed: [%s], unprocessed: [%s]): %v",
		e.Failed, strings.Join(e.Committed, ","), strings.Join(e.Unprocessed, ","), e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
