package receipt_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/session"
	"github.com/noah-isme/backend-pos/internal/upstream"
)

type fakeSubmitter struct {
	payloads []upstream.ImportPayload
	err      error
}

func (f *fakeSubmitter) CreateImportReceipt(_ context.Context, payload upstream.ImportPayload) (upstream.CreateResult, error) {
	if f.err != nil {
		return upstream.CreateResult{}, f.err
	}
	f.payloads = append(f.payloads, payload)
	return upstream.CreateResult{ID: "imp-1"}, nil
}

type fakeProducts struct{}

func (fakeProducts) ProductByID(_ context.Context, id string) (receipt.Product, error) {
	return receipt.Product{ID: id, Price: 7_500}, nil
}

func newTestService(t *testing.T) (*receipt.Service, *fakeSubmitter) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	submitter := &fakeSubmitter{}
	svc := &receipt.Service{
		Store:     session.RedisStore{R: client, Prefix: "test"},
		Locker:    lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
		TTL:       time.Hour,
		Now:       func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) },
		Products:  fakeProducts{},
		Submitter: submitter,
	}
	return svc, submitter
}

func TestServiceAddAndUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)

	st, err := svc.AddItemByID(ctx, id, "p1")
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	require.EqualValues(t, 7_500, st.Lines[0].UnitPrice)

	st, err = svc.UpdateLine(ctx, id, 0, receipt.FieldQuantity, 4)
	require.NoError(t, err)
	require.Equal(t, 4, st.Lines[0].Qty)
	require.EqualValues(t, 30_000, st.Lines[0].Subtotal)

	_, err = svc.UpdateLine(ctx, id, 0, "bogus", 1)
	require.ErrorIs(t, err, receipt.ErrInvalidInput)
}

func TestServiceSubmitBuildsImportPayload(t *testing.T) {
	svc, submitter := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, id, receipt.Product{ID: "p1", Price: 10_000})
	require.NoError(t, err)
	_, err = svc.UpdateLine(ctx, id, 0, receipt.FieldQuantity, 3)
	require.NoError(t, err)
	_, err = svc.SetSupplier(ctx, id, "sup-9", false)
	require.NoError(t, err)
	_, err = svc.SetNote(ctx, id, "weekly restock")
	require.NoError(t, err)

	result, err := svc.Submit(ctx, id, receipt.SubmitInput{UserID: "u-1", Status: "choduyet"})
	require.NoError(t, err)
	require.Equal(t, "imp-1", result.ID)

	require.Len(t, submitter.payloads, 1)
	payload := submitter.payloads[0]
	require.Equal(t, "sup-9", payload.SupplierID)
	require.Equal(t, "u-1", payload.UserID)
	require.Equal(t, "2025-03-14T09:30:00Z", payload.ImportDate)
	require.EqualValues(t, 30_000, payload.TotalAmount)
	require.Equal(t, "weekly restock", payload.Note)
	require.Len(t, payload.ImportItems, 1)
	require.Equal(t, "p1", payload.ImportItems[0].ProductID)
	require.Equal(t, 3, payload.ImportItems[0].Quantity)

	// session cleared after submission
	st, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Empty(t, st.Lines)
	require.Empty(t, st.SupplierID)
}

func TestServiceSubmitEmptyReceipt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, id, receipt.SubmitInput{UserID: "u-1"})
	require.ErrorIs(t, err, receipt.ErrEmptyReceipt)
}

func TestServiceSubmitRequiresSupplier(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, id, receipt.Product{ID: "p1", Price: 100})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, id, receipt.SubmitInput{UserID: "u-1"})
	require.ErrorIs(t, err, receipt.ErrInvalidInput)
}

func TestServiceSubmitKeepsSessionOnFailure(t *testing.T) {
	svc, submitter := newTestService(t)
	submitter.err = context.DeadlineExceeded
	ctx := context.Background()

	id, _, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, id, receipt.Product{ID: "p1", Price: 100})
	require.NoError(t, err)
	_, err = svc.SetSupplier(ctx, id, "sup-1", false)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, id, receipt.SubmitInput{UserID: "u-1"})
	require.Error(t, err)

	st, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
}
