package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
)

// PgStore is the Postgres-backed Store.
type PgStore struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPgStore(pool *db.Pool) *PgStore {
	return &PgStore{pool: pool, outbox: outbox.NewRepository()}
}

func (s *PgStore) Repos() Repositories {
	return s.bind(s.pool)
}

func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, s.bind(tx))
	})
}

func (s *PgStore) bind(q db.DBTX) Repositories {
	return Repositories{
		EventTypes:   &pgEventTypes{q: q},
		Availability: &pgAvailability{q: q},
		Overrides:    &pgOverrides{q: q},
		Bookings:     &pgBookings{q: q},
		Outbox:       &pgOutbox{q: q, repo: s.outbox},
	}
}

type pgOutbox struct {
	q    db.DBTX
	repo *outbox.Repository
}

func (o *pgOutbox) Insert(ctx context.Context, evt outbox.Event) error {
	return o.repo.Insert(ctx, o.q, evt)
}

// IsConflict reports an exclusion-constraint violation (overlapping booking).
func IsConflict(err error) bool {
	return db.PgErrorCode(err) == db.CodeExclusionViolation
}

func IsUniqueViolation(err error) bool {
	return db.PgErrorCode(err) == db.CodeUniqueViolation
}

// IsNotFound matches both a missing row and the model sentinel, so callers
// work against any Store.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, model.ErrNotFound)
}

// mapErr translates driver errors into the model sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return model.ErrNotFound
	case IsConflict(err):
		return model.ErrSlotConflict
	case db.PgErrorCode(err) == db.CodeInvalidText:
		// A malformed uuid can never match a row.
		return model.ErrNotFound
	default:
		return err
	}
}

func expectOne(tagRows int64) error {
	if tagRows == 0 {
		return model.ErrNotFound
	}
	return nil
}
