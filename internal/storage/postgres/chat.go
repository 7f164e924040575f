package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arianrhod/internal/chat"
	"github.com/cory-johannsen/arianrhod/internal/game/dice"
)

// ChatRepository stores posted chat messages. It implements chat.Sink.
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a ChatRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Post stores m. A message without an actor is stored with a NULL actor_id.
//
// Precondition: m.ID must be set.
func (r *ChatRepository) Post(ctx context.Context, m *chat.Message) error {
	var actorID any
	if m.ActorID != uuid.Nil {
		actorID = m.ActorID
	}
	var roll any
	if m.Roll != nil {
		roll = m.Roll
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_messages (id, actor_id, speaker, roll_mode, flavor, content, roll, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, actorID, m.Speaker, string(m.RollMode), m.Flavor, m.Content, roll, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// ListByActor returns up to limit messages posted for an actor, newest first.
//
// Precondition: limit > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ChatRepository) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]*chat.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, speaker, roll_mode, flavor, content, roll, created_at
		FROM chat_messages WHERE actor_id = $1
		ORDER BY created_at DESC, id ASC LIMIT $2`,
		actorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]*chat.Message, 0)
	for rows.Next() {
		var (
			m    = &chat.Message{ActorID: actorID}
			mode string
			roll *dice.RollResult
		)
		if err := rows.Scan(&m.ID, &m.Speaker, &mode, &m.Flavor, &m.Content, &roll, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message row: %w", err)
		}
		m.RollMode = chat.RollMode(mode)
		m.Roll = roll
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
