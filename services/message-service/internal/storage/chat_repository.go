package storage

import (
	"context"
	"errors"

	"github.com/fitstart-app/backend/libs/db"
	"github.com/fitstart-app/backend/services/message-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const conversationColumns = `id, venue_id, user_id, owner_id, last_message, last_message_at, created_at, updated_at`

type ChatRepository struct {
	pool *db.Pool
}

func NewChatRepository(pool *db.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanConversation(row pgx.Row) (model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.VenueID, &c.UserID, &c.OwnerID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *ChatRepository) Get(ctx context.Context, id string) (model.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE id = $1
	`, id))
}

// FindByVenueAndUser returns the customer's existing thread for a venue.
func (r *ChatRepository) FindByVenueAndUser(ctx context.Context, venueID, userID string) (model.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE venue_id = $1 AND user_id = $2
	`, venueID, userID))
}

func (r *ChatRepository) CreateConversation(ctx context.Context, tx pgx.Tx, c *model.Conversation) error {
	return tx.QueryRow(ctx, `
		INSERT INTO conversations (venue_id, user_id, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, last_message, last_message_at, created_at, updated_at
	`, c.VenueID, c.UserID, c.OwnerID).
		Scan(&c.ID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
}

// ListByParticipant returns every thread the caller is part of, on either
// side, most recently active first.
func (r *ChatRepository) ListByParticipant(ctx context.Context, participantID string) ([]model.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_id = $1 OR owner_id = $1
		ORDER BY last_message_at DESC
	`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertMessage appends a message and rolls the thread's last-message
// snapshot forward in the same transaction.
func (r *ChatRepository) InsertMessage(ctx context.Context, tx pgx.Tx, m *model.Message) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.ConversationID, m.SenderID, m.Body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE conversations
		SET last_message = $2, last_message_at = $3, updated_at = now()
		WHERE id = $1
	`, m.ConversationID, m.Body, m.CreatedAt)
	return err
}

func (r *ChatRepository) ListMessages(ctx context.Context, conversationID string, page, limit int) ([]model.Message, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages WHERE conversation_id = $1
	`, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, body, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, conversationID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// MarkRead flags every message the reader received in the thread.
func (r *ChatRepository) MarkRead(ctx context.Context, conversationID, readerID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET is_read = true
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read
	`, conversationID, readerID)
	return err
}

func IsNotFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
