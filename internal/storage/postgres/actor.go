package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arianrhod/internal/document"
	"github.com/cory-johannsen/arianrhod/internal/game/character"
)

// ErrActorNotFound is returned when an actor lookup yields no results.
var ErrActorNotFound = errors.New("actor not found")

// ErrActorExists is returned when creating an actor whose ID is already stored.
var ErrActorExists = errors.New("actor already exists")

// ActorRepository persists actors. The stored "system" block is kept as
// JSONB in the host document layout, so derived fields never reach the table.
type ActorRepository struct {
	db      *pgxpool.Pool
	decoder *document.Decoder
}

// NewActorRepository creates an ActorRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; decoder must be non-nil.
func NewActorRepository(db *pgxpool.Pool, decoder *document.Decoder) *ActorRepository {
	return &ActorRepository{db: db, decoder: decoder}
}

// Create inserts a and its items in one transaction.
//
// Precondition: a.Type must be valid; a.Name must be non-empty.
// Postcondition: Returns the stored actor with ID and timestamps set, or
// ErrActorExists on a duplicate ID.
func (r *ActorRepository) Create(ctx context.Context, a *character.Actor) (*character.Actor, error) {
	if !a.Type.Valid() {
		return nil, fmt.Errorf("creating actor: invalid type %q", a.Type)
	}
	if a.Name == "" {
		return nil, errors.New("creating actor: name must not be empty")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	system, err := document.EncodeActorSystem(a)
	if err != nil {
		return nil, fmt.Errorf("encoding actor %q: %w", a.Name, err)
	}
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	err = withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO actors (id, name, type, img, system)
			VALUES ($1, $2, $3, $4, $5)`,
			id, a.Name, string(a.Type), a.Img, system,
		); err != nil {
			if isDuplicateKeyError(err) {
				return ErrActorExists
			}
			return fmt.Errorf("inserting actor: %w", err)
		}
		for _, it := range a.Items {
			c := it.Clone()
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			if err := insertItem(ctx, tx, id, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Get retrieves an actor with its items ordered by sort.
//
// Postcondition: Returns the Actor or ErrActorNotFound.
func (r *ActorRepository) Get(ctx context.Context, id uuid.UUID) (*character.Actor, error) {
	return r.load(ctx, r.db, id, false)
}

// Update applies field-path updates such as "system.abilities.str.point" to
// the stored actor document. Derived and unknown paths are rejected with
// document.ErrDerivedField or document.ErrImmutableField.
//
// Postcondition: Returns the updated actor, ErrActorNotFound, the joined
// path errors, or the *character.ConfigurationError of an update that would
// leave a dangling reference; nothing is written on error.
func (r *ActorRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*character.Actor, error) {
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		a, err := r.load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		doc, err := document.EncodeActor(a)
		if err != nil {
			return err
		}
		doc, err = document.ApplyUpdates(doc, updates)
		if err != nil {
			return err
		}
		updated, err := r.decoder.DecodeActor(doc)
		if err != nil {
			return fmt.Errorf("decoding updated actor: %w", err)
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		system, err := document.EncodeActorSystem(updated)
		if err != nil {
			return fmt.Errorf("encoding actor %q: %w", updated.Name, err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE actors SET name = $2, img = $3, system = $4, updated_at = NOW()
			WHERE id = $1`,
			id, updated.Name, updated.Img, system,
		); err != nil {
			return fmt.Errorf("updating actor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes an actor and, by cascade, its items.
//
// Postcondition: Returns nil on success or ErrActorNotFound.
func (r *ActorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting actor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrActorNotFound
	}
	return nil
}

func (r *ActorRepository) load(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*character.Actor, error) {
	return loadActor(ctx, q, r.decoder, id, forUpdate)
}

func loadActor(ctx context.Context, q querier, decoder *document.Decoder, id uuid.UUID, forUpdate bool) (*character.Actor, error) {
	sql := `SELECT id, name, type, img, system, created_at, updated_at FROM actors WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var (
		a      character.Actor
		typ    string
		system []byte
	)
	err := q.QueryRow(ctx, sql, id).Scan(&a.ID, &a.Name, &typ, &a.Img, &system, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, fmt.Errorf("querying actor: %w", err)
	}
	a.Type = character.ActorType(typ)
	if err := decoder.DecodeActorSystem(&a, system); err != nil {
		return nil, fmt.Errorf("decoding actor %s: %w", id, err)
	}
	items, err := listItems(ctx, q, decoder, id)
	if err != nil {
		return nil, err
	}
	a.Items = items
	return &a, nil
}
