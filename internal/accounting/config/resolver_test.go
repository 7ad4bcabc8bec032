package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir-erp/comptoir/internal/masterdata/products"
	"github.com/comptoir-erp/comptoir/internal/masterdata/services"
)

type stubRepo struct {
	cfg   Config
	err   error
	calls int
}

func (s *stubRepo) Get(ctx context.Context, posID int64) (Config, error) {
	s.calls++
	if s.err != nil {
		return Config{}, s.err
	}
	return s.cfg, nil
}

func ptr(v int64) *int64 {
	return &v
}

func validConfig() Config {
	return Config{
		POSID:                   1,
		EnterpriseID:            7,
		SaleRevenueAccountID:    701,
		CashAccountID:           571,
		ReceivableAccountID:     411,
		DiscountAccountID:       ptr(709),
		StockAssetAccountID:     ptr(31),
		StockVariationAccountID: ptr(603),
		PurchaseAccountID:       ptr(601),
		OutletWarehouseID:       ptr(5),
	}
}

func TestResolverLoad(t *testing.T) {
	repo := &stubRepo{cfg: validConfig()}
	resolver := NewResolver(repo, nil)

	cfg, err := resolver.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(701), cfg.SaleRevenueAccountID)
}

func TestResolverLoadMissingRow(t *testing.T) {
	resolver := NewResolver(&stubRepo{err: ErrConfigMissing}, nil)

	_, err := resolver.Load(context.Background(), 1)
	require.ErrorIs(t, err, ErrConfigMissing)
}

func TestResolverLoadRequiredAccountUnset(t *testing.T) {
	cfg := validConfig()
	cfg.CashAccountID = 0
	resolver := NewResolver(&stubRepo{cfg: cfg}, nil)

	_, err := resolver.Load(context.Background(), 1)
	require.ErrorIs(t, err, ErrConfigMissing)
}

func TestResolverLoadUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{cfg: validConfig()}
	resolver := NewResolver(repo, NewCache(client, time.Minute))

	_, err := resolver.Load(context.Background(), 1)
	require.NoError(t, err)
	_, err = resolver.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	resolver.Invalidate(context.Background(), 1)
	_, err = resolver.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestResolverCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{cfg: validConfig()}
	resolver := NewResolver(repo, NewCache(client, time.Minute))

	_, err := resolver.Load(context.Background(), 1)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = resolver.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestValidateForSale(t *testing.T) {
	resolver := NewResolver(&stubRepo{}, nil)
	cfg := validConfig()

	require.NoError(t, resolver.ValidateForSale(cfg, true, decimal.Zero))

	cfg.DiscountAccountID = nil
	err := resolver.ValidateForSale(cfg, false, decimal.NewFromInt(500))
	var incomplete IncompleteError
	require.ErrorAs(t, err, &incomplete)

	cfg = validConfig()
	cfg.StockAssetAccountID = nil
	require.Error(t, resolver.ValidateForSale(cfg, true, decimal.Zero))
	// service-only carts do not need the stock pair
	require.NoError(t, resolver.ValidateForSale(cfg, false, decimal.Zero))
}

func TestRevenueAccountResolution(t *testing.T) {
	resolver := NewResolver(&stubRepo{}, nil)
	cfg := validConfig()

	account, err := resolver.RevenueAccountForProduct(cfg, products.Product{})
	require.NoError(t, err)
	require.Equal(t, int64(701), account)

	account, err = resolver.RevenueAccountForProduct(cfg, products.Product{RevenueAccountID: ptr(706)})
	require.NoError(t, err)
	require.Equal(t, int64(706), account)

	account, err = resolver.RevenueAccountForService(cfg, services.Service{RevenueAccountID: ptr(705)})
	require.NoError(t, err)
	require.Equal(t, int64(705), account)
}

func TestCOGSAccountFallbackChain(t *testing.T) {
	resolver := NewResolver(&stubRepo{}, nil)
	cfg := validConfig()

	account, err := resolver.COGSAccountFor(cfg, products.Product{ChargeAccountID: ptr(602)})
	require.NoError(t, err)
	require.Equal(t, int64(602), account)

	account, err = resolver.COGSAccountFor(cfg, products.Product{})
	require.NoError(t, err)
	require.Equal(t, int64(601), account)

	cfg.PurchaseAccountID = nil
	account, err = resolver.COGSAccountFor(cfg, products.Product{})
	require.NoError(t, err)
	require.Equal(t, int64(603), account)

	cfg.StockVariationAccountID = nil
	_, err = resolver.COGSAccountFor(cfg, products.Product{})
	var incomplete IncompleteError
	require.ErrorAs(t, err, &incomplete)
}
