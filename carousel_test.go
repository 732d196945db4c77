package adminkit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adminkit "github.com/ottovalles/go-adminkit"
	"github.com/ottovalles/go-adminkit/kv"
)

func newCarouselStore(t *testing.T) (*adminkit.CarouselStore, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	carousel := adminkit.NewCarouselStore(adminkit.NewSessionStore(store))
	t.Cleanup(carousel.Broadcast().Close)
	return carousel, store
}

func carouselItem(title string) adminkit.CarouselItem {
	return adminkit.CarouselItem{
		Title:    title,
		URL:      "https://cdn.example.com/" + title + ".jpg",
		IsActive: true,
	}
}

func TestCarouselAddAssignsSequentialOrder(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	for i, title := range []string{"first", "second", "third"} {
		item, err := carousel.Add(ctx, carouselItem(title))
		require.NoError(t, err)
		assert.Equal(t, i, item.Order)
		assert.NotEmpty(t, item.ID)
		assert.False(t, item.UpdatedAt.IsZero())
	}
}

func TestCarouselAddValidation(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	_, err := carousel.Add(ctx, adminkit.CarouselItem{Title: "no media url"})
	assert.Error(t, err)

	_, err = carousel.Add(ctx, adminkit.CarouselItem{URL: "not a url"})
	assert.Error(t, err)
}

func TestCarouselAddDuplicateID(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	// Same image URL derives the same ID.
	item, err := carousel.Add(ctx, carouselItem("banner"))
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)

	_, err = carousel.Add(ctx, carouselItem("banner"))
	assert.ErrorIs(t, err, adminkit.ErrItemExists)
}

func TestCarouselRemoveLeavesGapsInOrder(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		item, err := carousel.Add(ctx, carouselItem(title))
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	require.NoError(t, carousel.Remove(ctx, ids[1]))

	items, err := carousel.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Ranks are never renumbered.
	assert.Equal(t, 0, items[0].Order)
	assert.Equal(t, 2, items[1].Order)

	// The next insert ranks at the current count, which may collide with a
	// surviving rank; ordering stays stable regardless.
	added, err := carousel.Add(ctx, carouselItem("d"))
	require.NoError(t, err)
	assert.Equal(t, 2, added.Order)
}

func TestCarouselRemoveUnknown(t *testing.T) {
	carousel, _ := newCarouselStore(t)
	err := carousel.Remove(context.Background(), "nope")
	assert.ErrorIs(t, err, adminkit.ErrItemNotFound)
}

func TestCarouselUpdate(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	item, err := carousel.Add(ctx, carouselItem("original"))
	require.NoError(t, err)

	updated := *item
	updated.Title = "renamed"
	got, err := carousel.Update(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, item.Order, got.Order, "update preserves rank")

	missing := carouselItem("ghost")
	missing.ID = "unknown-id"
	_, err = carousel.Update(ctx, missing)
	assert.ErrorIs(t, err, adminkit.ErrItemNotFound)
}

func TestCarouselToggleActive(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	item, err := carousel.Add(ctx, carouselItem("banner"))
	require.NoError(t, err)
	require.True(t, item.IsActive)

	toggled, err := carousel.ToggleActive(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = carousel.ToggleActive(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = carousel.ToggleActive(ctx, "nope")
	assert.ErrorIs(t, err, adminkit.ErrItemNotFound)
}

func TestCarouselPublish(t *testing.T) {
	ctx := context.Background()
	carousel, store := newCarouselStore(t)

	first, err := carousel.Add(ctx, carouselItem("visible"))
	require.NoError(t, err)

	second, err := carousel.Add(ctx, carouselItem("also-visible"))
	require.NoError(t, err)

	hidden, err := carousel.Add(ctx, carouselItem("hidden"))
	require.NoError(t, err)
	_, err = carousel.ToggleActive(ctx, hidden.ID)
	require.NoError(t, err)

	changes, cancel := carousel.Broadcast().Subscribe()
	defer cancel()

	published, err := carousel.Publish(ctx, "user-1")
	require.NoError(t, err)

	require.Len(t, published, 2)
	assert.Equal(t, first.ID, published[0].ID)
	assert.Equal(t, second.ID, published[1].ID)

	// The slot is durably written.
	_, err = store.Get(ctx, adminkit.KeyHomepageCarousel)
	require.NoError(t, err)

	live, err := carousel.Published(ctx)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, first.ID, live[0].ID)

	// Exactly one notification per publish, carrying both active items.
	select {
	case snapshot := <-changes:
		require.Len(t, snapshot, 2)
	case <-time.After(time.Second):
		t.Fatal("expected a publish notification")
	}

	select {
	case <-changes:
		t.Fatal("got more than one notification for a single publish")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCarouselPublishAllInactiveIsEmptyCarousel(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	item, err := carousel.Add(ctx, carouselItem("banner"))
	require.NoError(t, err)
	_, err = carousel.ToggleActive(ctx, item.ID)
	require.NoError(t, err)

	published, err := carousel.Publish(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, published)

	live, err := carousel.Published(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestCarouselPublishedEmptyWhenNeverPublished(t *testing.T) {
	carousel, _ := newCarouselStore(t)

	live, err := carousel.Published(context.Background())
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestCarouselMirrorIsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	mirror := new(MockCarouselMirror)
	carousel := adminkit.NewCarouselStore(adminkit.NewSessionStore(store)).
		WithMirror(mirror)
	t.Cleanup(carousel.Broadcast().Close)

	mirror.On("SaveItem", ctx, mock.Anything).Return(assert.AnError).Once()

	// A mirror failure never fails the local write.
	item, err := carousel.Add(ctx, carouselItem("banner"))
	require.NoError(t, err)

	items, err := carousel.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	mirror.On("DeleteItem", ctx, item.ID).Return(assert.AnError).Once()
	require.NoError(t, carousel.Remove(ctx, item.ID))

	mirror.AssertExpectations(t)
}

func TestCarouselItemsSortedByOrder(t *testing.T) {
	ctx := context.Background()
	carousel, _ := newCarouselStore(t)

	for _, title := range []string{"a", "b", "c", "d"} {
		_, err := carousel.Add(ctx, carouselItem(title))
		require.NoError(t, err)
	}

	items, err := carousel.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)

	for i := 1; i < len(items); i++ {
		assert.LessOrEqual(t, items[i-1].Order, items[i].Order)
	}
}
