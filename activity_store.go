package adminkit

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityRecord is the persisted row model for activity events.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activity_log,alias:act"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EventType  string         `bun:"event_type,notnull" json:"event_type"`
	UserID     string         `bun:"user_id" json:"user_id,omitempty"`
	Metadata   map[string]any `bun:"metadata" json:"metadata,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
	CreatedAt  *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// BunActivityStore is an ActivitySink persisting events to a bun-managed
// table so audit history survives restarts.
type BunActivityStore struct {
	repo   repository.Repository[*ActivityRecord]
	db     *bun.DB
	logger Logger
}

var _ ActivitySink = (*BunActivityStore)(nil)

func NewBunActivityStore(db *bun.DB) *BunActivityStore {
	repo := repository.NewRepository[*ActivityRecord](db, repository.ModelHandlers[*ActivityRecord]{
		NewRecord: func() *ActivityRecord { return &ActivityRecord{} },
		GetID: func(r *ActivityRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *ActivityRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &BunActivityStore{
		repo:   repo,
		db:     db,
		logger: defLogger{},
	}
}

func (s *BunActivityStore) WithLogger(logger Logger) *BunActivityStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Init creates the backing table when missing.
func (s *BunActivityStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*ActivityRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Record implements ActivitySink.
func (s *BunActivityStore) Record(ctx context.Context, event ActivityEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	record := &ActivityRecord{
		ID:         uuid.New(),
		EventType:  string(event.EventType),
		UserID:     event.UserID,
		Metadata:   event.Metadata,
		OccurredAt: occurred,
	}

	if _, err := s.repo.Create(ctx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist activity event")
	}

	return nil
}

// Recent returns the latest events, newest first.
func (s *BunActivityStore) Recent(ctx context.Context, limit int) ([]*ActivityRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*ActivityRecord
	err := s.db.NewSelect().
		Model(&records).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list activity events")
	}

	return records, nil
}
