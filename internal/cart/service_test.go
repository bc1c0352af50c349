package cart_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/session"
)

type fakePromotions struct {
	promos map[string]cart.Promotion
}

func (f fakePromotions) PromotionByCode(_ context.Context, code string) (cart.Promotion, error) {
	promo, ok := f.promos[code]
	if !ok {
		return cart.Promotion{}, cart.ErrPromotionNotFound
	}
	return promo, nil
}

type fakeProducts struct {
	products map[string]cart.Product
}

func (f fakeProducts) ProductByID(_ context.Context, id string) (cart.Product, error) {
	prod, ok := f.products[id]
	if !ok {
		return cart.Product{}, cart.ErrProductNotFound
	}
	return prod, nil
}

func newTestService(t *testing.T) (*cart.Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := &cart.Service{
		Store:  session.RedisStore{R: client, Prefix: "test"},
		Locker: lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
		TTL:    time.Hour,
		Promotions: fakePromotions{promos: map[string]cart.Promotion{
			"TEN": {ID: "pr1", Code: "TEN", Kind: pricing.KindPercentage, PercentBps: 1000},
		}},
		Products: fakeProducts{products: map[string]cart.Product{
			"p1": {ID: "p1", Name: "Rice 5kg", Price: 150_000},
		}},
	}
	return svc, mr
}

func TestServiceCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, st, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Empty(t, st.Lines)

	loaded, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Empty(t, loaded.Lines)
}

func TestServiceGetMissingSession(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestServiceAddItemByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)

	st, err := svc.AddItemByID(ctx, id, "p1")
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	require.Equal(t, pricing.Money(150_000), st.Lines[0].UnitPrice)

	_, err = svc.AddItemByID(ctx, id, "missing")
	require.ErrorIs(t, err, cart.ErrProductNotFound)
}

func TestServiceApplyPromotionCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, id, cart.Product{ID: "p1", Price: 100_000})
	require.NoError(t, err)

	st, err := svc.ApplyPromotionCode(ctx, id, "TEN")
	require.NoError(t, err)
	require.Len(t, st.Promotions, 1)
	require.Equal(t, "TEN", st.PromoCode)
	require.Empty(t, st.PromoError)
	require.Equal(t, pricing.Money(90_000), st.Summary().Total)
}

func TestServiceApplyPromotionCodeInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)

	// an unknown code is recorded on the session, not returned as an error
	st, err := svc.ApplyPromotionCode(ctx, id, "NOPE")
	require.NoError(t, err)
	require.Empty(t, st.Promotions)
	require.Equal(t, "NOPE", st.PromoCode)
	require.Equal(t, "promo code is not valid", st.PromoError)
}

func TestServiceRemovePromotionAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.ApplyPromotion(ctx, id, cart.Promotion{ID: "pr1"})
	require.NoError(t, err)
	_, err = svc.SetPromoCode(ctx, id, "TEN")
	require.NoError(t, err)

	st, err := svc.RemovePromotion(ctx, id, "")
	require.NoError(t, err)
	require.Empty(t, st.Promotions)
	require.Empty(t, st.PromoCode)
}

func TestServiceSessionExpiry(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = svc.Get(ctx, id)
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestServiceSetPaymentRejectsNegative(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.SetPayment(ctx, id, cart.Payment{Method: "cash", ReceivedAmount: -1}, false)
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}
