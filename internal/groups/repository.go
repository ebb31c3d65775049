package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists groups and their messages.
type Repository interface {
	Create(ctx context.Context, group Group) error
	Get(ctx context.Context, id string) (Group, error)
	AddMessage(ctx context.Context, msg Message) error
	Messages(ctx context.Context, groupID string) ([]Message, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed group repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the group and its members atomically.
func (r *PostgresRepository) Create(ctx context.Context, group Group) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO groups (id, name, description, creator_id, created_at)
            VALUES ($1, $2, $3, $4, $5)`, group.ID, group.Name, group.Description, group.CreatorID, group.CreatedAt.UTC()); err != nil {
			return err
		}
		rows := make([][]any, 0, len(group.Participants))
		for i, userID := range group.Participants {
			rows = append(rows, []any{group.ID, userID, i})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"group_members"}, []string{"group_id", "user_id", "position"}, pgx.CopyFromRows(rows))
		return err
	})
}

// Get loads a group with its participants in join order.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Group, error) {
	var group Group
	err := r.db.QueryRow(ctx, `SELECT id, name, description, creator_id, created_at FROM groups WHERE id = $1`, id).
		Scan(&group.ID, &group.Name, &group.Description, &group.CreatorID, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, ErrGroupNotFound
		}
		return Group{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY position`, id)
	if err != nil {
		return Group{}, err
	}
	group.Participants, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Group{}, fmt.Errorf("load members: %w", err)
	}
	group.CreatedAt = group.CreatedAt.UTC()
	return group, nil
}

// AddMessage stores a group message.
func (r *PostgresRepository) AddMessage(ctx context.Context, msg Message) error {
	_, err := r.db.Exec(ctx, `INSERT INTO group_messages (id, group_id, sender_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5)`, msg.ID, msg.GroupID, msg.SenderID, msg.Content, msg.CreatedAt.UTC())
	return err
}

// Messages lists a group's messages oldest first.
func (r *PostgresRepository) Messages(ctx context.Context, groupID string) ([]Message, error) {
	rows, err := r.db.Query(ctx, `SELECT id, group_id, sender_id, content, created_at
        FROM group_messages WHERE group_id = $1 ORDER BY created_at, id`, groupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		err := row.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content, &m.CreatedAt)
		return m, err
	})
}
