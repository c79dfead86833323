package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/exchangesim/internal/market/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type memMarketRepo struct {
	markets map[string]*domain.Market
}

func newMemMarketRepo() *memMarketRepo {
	return &memMarketRepo{markets: make(map[string]*domain.Market)}
}

func (r *memMarketRepo) Save(_ context.Context, m *domain.Market) error {
	if _, ok := r.markets[m.Symbol]; ok {
		return domain.ErrMarketExists
	}
	r.markets[m.Symbol] = m
	return nil
}

func (r *memMarketRepo) Update(_ context.Context, m *domain.Market) error {
	if _, ok := r.markets[m.Symbol]; !ok {
		return domain.ErrMarketNotFound
	}
	r.markets[m.Symbol] = m
	return nil
}

func (r *memMarketRepo) GetBySymbol(_ context.Context, symbol string) (*domain.Market, error) {
	m, ok := r.markets[symbol]
	if !ok {
		return nil, domain.ErrMarketNotFound
	}
	return m, nil
}

func (r *memMarketRepo) ListSymbols(_ context.Context) ([]string, error) {
	symbols := make([]string, 0, len(r.markets))
	for s := range r.markets {
		symbols = append(symbols, s)
	}
	return symbols, nil
}

func (r *memMarketRepo) ListAll(_ context.Context) ([]*domain.Market, error) {
	all := make([]*domain.Market, 0, len(r.markets))
	for _, m := range r.markets {
		all = append(all, m)
	}
	return all, nil
}

type recordingRefresher struct {
	refreshed []string
}

func (r *recordingRefresher) RefreshMarket(_ context.Context, symbol string) error {
	r.refreshed = append(r.refreshed, symbol)
	return nil
}

func newTestService(repo domain.MarketRepository, refresher EngineRefresher) *MarketService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMarketService(repo, refresher, logger)
}

func TestCreateMarket(t *testing.T) {
	repo := newMemMarketRepo()
	svc := newTestService(repo, nil)

	m, err := svc.CreateMarket(context.Background(), "BTC-USD", "Bitcoin / US Dollar",
		dec("0.01"), dec("0.0001"), dec("1000"))
	require.NoError(t, err)
	assert.True(t, m.Active)

	_, err = svc.CreateMarket(context.Background(), "BTC-USD", "dup",
		dec("0.01"), dec("0.0001"), dec("1000"))
	assert.ErrorIs(t, err, domain.ErrMarketExists)

	_, err = svc.CreateMarket(context.Background(), "BAD", "bad increments",
		dec("0"), dec("0.0001"), dec("1000"))
	assert.Error(t, err)
}

func TestSetActiveRefreshesEngine(t *testing.T) {
	repo := newMemMarketRepo()
	refresher := &recordingRefresher{}
	svc := newTestService(repo, refresher)

	_, err := svc.CreateMarket(context.Background(), "BTC-USD", "Bitcoin / US Dollar",
		dec("0.01"), dec("0.0001"), dec("1000"))
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(context.Background(), "BTC-USD", false))

	m, err := repo.GetBySymbol(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.False(t, m.Active)
	assert.Equal(t, []string{"BTC-USD"}, refresher.refreshed)

	assert.ErrorIs(t, svc.SetActive(context.Background(), "GHOST", true), domain.ErrMarketNotFound)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	repo := newMemMarketRepo()
	svc := newTestService(repo, nil)

	defaults := []*domain.Market{
		domain.NewMarket("BTC-USD", "Bitcoin / US Dollar", dec("0.01"), dec("0.0001"), dec("1000")),
		domain.NewMarket("ETH-USD", "Ethereum / US Dollar", dec("0.01"), dec("0.001"), dec("10000")),
	}

	require.NoError(t, svc.SeedDefaults(context.Background(), defaults))
	require.NoError(t, svc.SeedDefaults(context.Background(), defaults))

	symbols, err := svc.ListMarkets(context.Background())
	require.NoError(t, err)
	assert.Len(t, symbols, 2)
}
