package adminkit

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"

	"github.com/ottovalles/go-adminkit/kv"
)

// CarouselItem is one entry of the homepage carousel.
//
// Order is an insertion rank, not a dense index: removals leave gaps and
// ranks are never renumbered. Display ordering sorts by Order ascending.
type CarouselItem struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	Order        int       `json:"order"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate will check the required fields are present
func (i CarouselItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.URL, validation.Required, is.URL),
		validation.Field(&i.ThumbnailURL, is.URL),
		validation.Field(&i.Title, validation.Length(0, 200)),
		validation.Field(&i.Width, validation.Min(0)),
		validation.Field(&i.Height, validation.Min(0)),
	)
}

// CarouselStore manages the working set of carousel items on a kv.Store and
// publishes the active subset to the homepage slot. Mutations are mirrored to
// the remote media API on a best-effort basis: a mirror failure is logged and
// local state stands.
type CarouselStore struct {
	sessions  *SessionStore
	mirror    CarouselMirror
	broadcast *CarouselBroadcast
	activity  ActivitySink
	logger    Logger
	now       Clock

	// Serializes read-modify-write cycles on the items key.
	mu sync.Mutex
}

func NewCarouselStore(sessions *SessionStore) *CarouselStore {
	return &CarouselStore{
		sessions:  sessions,
		broadcast: NewCarouselBroadcast(),
		activity:  noopActivitySink{},
		logger:    defLogger{},
		now:       time.Now,
	}
}

func (s *CarouselStore) WithLogger(logger Logger) *CarouselStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *CarouselStore) WithMirror(mirror CarouselMirror) *CarouselStore {
	s.mirror = mirror
	return s
}

func (s *CarouselStore) WithActivitySink(sink ActivitySink) *CarouselStore {
	s.activity = normalizeActivitySink(sink)
	return s
}

func (s *CarouselStore) WithClock(clock Clock) *CarouselStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Broadcast exposes the publish notification channel for subscribers.
func (s *CarouselStore) Broadcast() *CarouselBroadcast {
	return s.broadcast
}

// Add appends a new item. Its rank is the current item count, so items keep
// arrival order even as earlier removals punch holes in the sequence.
// Provider-assigned IDs are kept; an empty ID gets a deterministic one
// derived from the media URL.
func (s *CarouselStore) Add(ctx context.Context, item CarouselItem) (*CarouselItem, error) {
	if err := item.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid carousel item")
	}

	if item.ID == "" {
		item.ID = s.deriveID(item.URL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, existing := range items {
		if existing.ID == item.ID {
			return nil, ErrItemExists
		}
	}

	item.Order = len(items)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	item.UpdatedAt = s.now()
	items = append(items, item)

	if err := s.save(ctx, items); err != nil {
		return nil, err
	}

	s.mirrorSave(ctx, item)

	return &item, nil
}

// Update replaces the stored fields of an existing item, preserving its rank.
func (s *CarouselStore) Update(ctx context.Context, item CarouselItem) (*CarouselItem, error) {
	if err := item.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid carousel item")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for idx, existing := range items {
		if existing.ID != item.ID {
			continue
		}
		item.Order = existing.Order
		item.UpdatedAt = s.now()
		items[idx] = item

		if err := s.save(ctx, items); err != nil {
			return nil, err
		}

		s.mirrorSave(ctx, item)
		return &item, nil
	}

	return nil, ErrItemNotFound
}

// Remove deletes an item by ID. Remaining ranks are left untouched.
func (s *CarouselStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	found := false
	for _, item := range items {
		if item.ID == id {
			found = true
			continue
		}
		kept = append(kept, item)
	}

	if !found {
		return ErrItemNotFound
	}

	if err := s.save(ctx, kept); err != nil {
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.DeleteItem(ctx, id); err != nil {
			s.logger.Warn("carousel mirror delete failed for %s: %v", id, err)
		}
	}

	return nil
}

// ToggleActive flips an item's visibility without touching the published
// slot; Publish makes visibility changes live.
func (s *CarouselStore) ToggleActive(ctx context.Context, id string) (*CarouselItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for idx := range items {
		if items[idx].ID != id {
			continue
		}
		items[idx].IsActive = !items[idx].IsActive
		items[idx].UpdatedAt = s.now()

		if err := s.save(ctx, items); err != nil {
			return nil, err
		}

		item := items[idx]
		s.mirrorSave(ctx, item)
		return &item, nil
	}

	return nil, ErrItemNotFound
}

// Items returns the working set sorted by rank.
func (s *CarouselStore) Items(ctx context.Context) ([]CarouselItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Order < items[j].Order
	})

	return items, nil
}

// Published returns the currently live homepage items.
func (s *CarouselStore) Published(ctx context.Context) ([]CarouselItem, error) {
	raw, err := s.sessions.Store().Get(ctx, KeyHomepageCarousel)
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read published carousel")
	}

	var items []CarouselItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode published carousel")
	}

	return items, nil
}

// Publish snapshots the active items, sorted by rank, into the homepage slot
// and emits exactly one change notification. Publishing an all-inactive set
// publishes an empty carousel; that is a valid state, not an error.
func (s *CarouselStore) Publish(ctx context.Context, userID string) ([]CarouselItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]CarouselItem, 0, len(items))
	for _, item := range items {
		if item.IsActive {
			active = append(active, item)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Order < active[j].Order
	})

	raw, err := json.Marshal(active)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize published carousel")
	}

	if err := s.sessions.Store().Set(ctx, KeyHomepageCarousel, string(raw)); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write published carousel")
	}

	// One notification per publish, after the slot is durably written.
	s.broadcast.Publish(active)

	event := ActivityEvent{
		EventType:  ActivityEventCarouselPublish,
		UserID:     userID,
		Metadata:   map[string]any{"items": len(active)},
		OccurredAt: s.now(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink rejected publish event: %v", err)
	}

	return active, nil
}

func (s *CarouselStore) load(ctx context.Context) ([]CarouselItem, error) {
	raw, err := s.sessions.Store().Get(ctx, KeyCarouselItems)
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read carousel items")
	}

	var items []CarouselItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode carousel items")
	}

	return items, nil
}

func (s *CarouselStore) save(ctx context.Context, items []CarouselItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize carousel items")
	}
	if err := s.sessions.Store().Set(ctx, KeyCarouselItems, string(raw)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist carousel items")
	}
	return nil
}

func (s *CarouselStore) mirrorSave(ctx context.Context, item CarouselItem) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SaveItem(ctx, item); err != nil {
		s.logger.Warn("carousel mirror save failed for %s: %v", item.ID, err)
	}
}

// deriveID produces a stable ID from the media URL so re-adding the same
// asset collides instead of duplicating.
func (s *CarouselStore) deriveID(mediaURL string) string {
	if id, err := hashid.NewUUID(mediaURL); err == nil {
		return id.String()
	}
	return uuid.New().String()
}
