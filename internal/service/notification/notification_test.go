package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

type fakeStore struct {
	items []repo.Notification
}

func (f *fakeStore) CreateMany(_ context.Context, ns []repo.Notification) error {
	for i := range ns {
		ns[i].ID = uuid.New()
		f.items = append(f.items, ns[i])
	}
	return nil
}

func (f *fakeStore) List(_ context.Context, userID uuid.UUID, unreadOnly bool, _ repo.Page) ([]repo.Notification, int, error) {
	var out []repo.Notification
	for _, n := range f.items {
		if n.UserID == userID && (!unreadOnly || n.ReadAt == nil) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	_, n, err := f.List(ctx, userID, true, repo.Page{})
	return n, err
}

func (f *fakeStore) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			if f.items[i].ReadAt == nil {
				now := time.Now()
				f.items[i].ReadAt = &now
			}
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	now := time.Now()
	for i := range f.items {
		if f.items[i].UserID == userID && f.items[i].ReadAt == nil {
			f.items[i].ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	for i, n := range f.items {
		if n.ID == id && n.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func TestNotifyDeduplicatesRecipients(t *testing.T) {
	store := &fakeStore{}
	svc := New(store)
	a, b := uuid.New(), uuid.New()

	n, err := svc.Notify(context.Background(), []uuid.UUID{a, b, a, uuid.Nil}, Content{Type: TypeSessionStarted, Title: "Session started"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotNil(t, store.items[0].Data.V)

	n, err = svc.Notify(context.Background(), nil, Content{Title: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.Notify(context.Background(), []uuid.UUID{a}, Content{Title: " "})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestReadFlow(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := New(store)
	me := &reqctx.Scope{UserID: uuid.New()}
	other := &reqctx.Scope{UserID: uuid.New()}

	_, err := svc.Notify(ctx, []uuid.UUID{me.UserID}, Content{Title: "one"})
	require.NoError(t, err)
	_, err = svc.Notify(ctx, []uuid.UUID{me.UserID, other.UserID}, Content{Title: "two"})
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	first := store.items[0].ID
	assert.ErrorIs(t, svc.MarkRead(ctx, other, first), ErrNotFound, "cannot touch someone else's notification")
	require.NoError(t, svc.MarkRead(ctx, me, first))
	require.NoError(t, svc.MarkRead(ctx, me, first), "idempotent")

	unread, err := svc.List(ctx, me, ListRequest{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, unread.Total)
	assert.Equal(t, "two", unread.Items[0].Title)

	n, err := svc.MarkAllRead(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, svc.Delete(ctx, me, first))
	assert.ErrorIs(t, svc.Delete(ctx, me, first), ErrNotFound)

	all, err := svc.List(ctx, me, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Total)
}
