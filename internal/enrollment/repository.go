package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists clubs and events. Rosters live in the ledger so that
// fees and memberships commit together.
type Repository interface {
	CreateClub(ctx context.Context, club Club) error
	Club(ctx context.Context, id string) (Club, error)
	Clubs(ctx context.Context) ([]Club, error)
	CreateEvent(ctx context.Context, event Event) error
	Event(ctx context.Context, id string) (Event, error)
	EventsByClub(ctx context.Context, clubID string) ([]Event, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed club and event repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateClub inserts the club and its organizers atomically. A duplicate name
// yields ErrClubNameTaken.
func (r *PostgresRepository) CreateClub(ctx context.Context, club Club) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO clubs (id, name, description, creator_id, fee, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			club.ID, club.Name, club.Description, club.CreatorID, club.Fee, club.CreatedAt.UTC()); err != nil {
			return err
		}
		rows := make([][]any, 0, len(club.Organizers))
		for i, userID := range club.Organizers {
			rows = append(rows, []any{club.ID, userID, i})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"club_organizers"}, []string{"club_id", "user_id", "position"}, pgx.CopyFromRows(rows))
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrClubNameTaken
	}
	return err
}

// Club loads a club with its organizers in the order they were added.
func (r *PostgresRepository) Club(ctx context.Context, id string) (Club, error) {
	var club Club
	err := r.db.QueryRow(ctx, `SELECT id, name, description, creator_id, fee, created_at FROM clubs WHERE id = $1`, id).
		Scan(&club.ID, &club.Name, &club.Description, &club.CreatorID, &club.Fee, &club.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Club{}, ErrClubNotFound
		}
		return Club{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT user_id FROM club_organizers WHERE club_id = $1 ORDER BY position`, id)
	if err != nil {
		return Club{}, err
	}
	club.Organizers, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Club{}, fmt.Errorf("load organizers: %w", err)
	}
	club.CreatedAt = club.CreatedAt.UTC()
	return club, nil
}

// Clubs lists every club by name without organizers.
func (r *PostgresRepository) Clubs(ctx context.Context) ([]Club, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, creator_id, fee, created_at FROM clubs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Club, error) {
		var c Club
		err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatorID, &c.Fee, &c.CreatedAt)
		return c, err
	})
}

// CreateEvent stores an event.
func (r *PostgresRepository) CreateEvent(ctx context.Context, event Event) error {
	_, err := r.db.Exec(ctx, `INSERT INTO events
        (id, club_id, creator_id, title, description, location, starts_at, ticket_price, capacity, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.ClubID, event.CreatorID, event.Title, event.Description, event.Location,
		event.StartsAt.UTC(), event.TicketPrice, event.Capacity, event.CreatedAt.UTC())
	return err
}

const eventColumns = `id, club_id, creator_id, title, description, location, starts_at, ticket_price, capacity, created_at`

// Event loads a single event.
func (r *PostgresRepository) Event(ctx context.Context, id string) (Event, error) {
	event, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	return event, err
}

// EventsByClub lists a club's events by start time.
func (r *PostgresRepository) EventsByClub(ctx context.Context, clubID string) ([]Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE club_id = $1 ORDER BY starts_at, id`, clubID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		return scanEvent(row)
	})
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.ClubID, &e.CreatorID, &e.Title, &e.Description, &e.Location,
		&e.StartsAt, &e.TicketPrice, &e.Capacity, &e.CreatedAt)
	e.StartsAt, e.CreatedAt = e.StartsAt.UTC(), e.CreatedAt.UTC()
	return e, err
}
