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

// ErrItemNotFound is returned when an item lookup yields no results.
var ErrItemNotFound = errors.New("item not found")

// ItemRepository persists items owned by actors.
type ItemRepository struct {
	db      *pgxpool.Pool
	decoder *document.Decoder
}

// NewItemRepository creates an ItemRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; decoder must be non-nil.
func NewItemRepository(db *pgxpool.Pool, decoder *document.Decoder) *ItemRepository {
	return &ItemRepository{db: db, decoder: decoder}
}

// Create adds it to the actor. A mainClass, subClass, or race item replaces
// any item of the same type the actor already owns. An item without a sort
// position is placed after the actor's existing items.
//
// Precondition: it.Type must be valid.
// Postcondition: Returns the stored item and the IDs of the items it
// replaced, ErrActorNotFound, or a *character.ConfigurationError when it
// contributes to a key the actor does not define.
func (r *ItemRepository) Create(ctx context.Context, actorID uuid.UUID, it *character.Item) (*character.Item, []uuid.UUID, error) {
	if !it.Type.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", character.ErrInvalidItemType, it.Type)
	}
	out := it.Clone()
	out.ActorID = actorID
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}

	var replaced []uuid.UUID
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		owner, err := loadActor(ctx, tx, r.decoder, actorID, true)
		if err != nil {
			return err
		}
		if err := owner.ValidateItem(out); err != nil {
			return err
		}
		if out.Type.Singleton() {
			rows, err := tx.Query(ctx, `
				DELETE FROM items WHERE actor_id = $1 AND type = $2 RETURNING id`,
				actorID, string(out.Type),
			)
			if err != nil {
				return fmt.Errorf("replacing %s items: %w", out.Type, err)
			}
			replaced, err = pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
			if err != nil {
				return fmt.Errorf("replacing %s items: %w", out.Type, err)
			}
		}
		if out.Sort == 0 {
			if err := tx.QueryRow(ctx, `
				SELECT COALESCE(MAX(sort), 0) + 1 FROM items WHERE actor_id = $1`,
				actorID,
			).Scan(&out.Sort); err != nil {
				return fmt.Errorf("computing sort: %w", err)
			}
		}
		return insertItem(ctx, tx, actorID, out)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, replaced, nil
}

// Get retrieves one item of an actor.
//
// Postcondition: Returns the Item or ErrItemNotFound.
func (r *ItemRepository) Get(ctx context.Context, actorID, itemID uuid.UUID) (*character.Item, error) {
	var (
		it     = &character.Item{ActorID: actorID}
		typ    string
		system []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, type, img, sort, system FROM items
		WHERE actor_id = $1 AND id = $2`,
		actorID, itemID,
	).Scan(&it.ID, &it.Name, &typ, &it.Img, &it.Sort, &system)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("querying item: %w", err)
	}
	it.Type = character.ItemType(typ)
	if err := r.decoder.DecodeItemSystem(it, system); err != nil {
		return nil, fmt.Errorf("decoding item %s: %w", itemID, err)
	}
	return it, nil
}

// Delete removes one item of an actor.
//
// Postcondition: Returns nil on success or ErrItemNotFound.
func (r *ItemRepository) Delete(ctx context.Context, actorID, itemID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE actor_id = $1 AND id = $2`, actorID, itemID)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func insertItem(ctx context.Context, q querier, actorID uuid.UUID, it *character.Item) error {
	system, err := document.EncodeItemSystem(it)
	if err != nil {
		return fmt.Errorf("encoding item %q: %w", it.Name, err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO items (id, actor_id, name, type, img, sort, system)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, actorID, it.Name, string(it.Type), it.Img, it.Sort, system,
	)
	if err != nil {
		switch {
		case isForeignKeyError(err):
			return ErrActorNotFound
		case isDuplicateKeyError(err):
			return fmt.Errorf("inserting item %s: duplicate id", it.ID)
		}
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

func listItems(ctx context.Context, q querier, decoder *document.Decoder, actorID uuid.UUID) ([]*character.Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, type, img, sort, system FROM items
		WHERE actor_id = $1 ORDER BY sort ASC, created_at ASC, id ASC`,
		actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := make([]*character.Item, 0)
	for rows.Next() {
		var (
			it     = &character.Item{ActorID: actorID}
			typ    string
			system []byte
		)
		if err := rows.Scan(&it.ID, &it.Name, &typ, &it.Img, &it.Sort, &system); err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		it.Type = character.ItemType(typ)
		if err := decoder.DecodeItemSystem(it, system); err != nil {
			return nil, fmt.Errorf("decoding item %s: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
