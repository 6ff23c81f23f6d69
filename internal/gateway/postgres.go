package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scythe504/hangparty-backend/internal"
)

// PostgresStore backs the gateway with Postgres. Cross-client invariants are
// enforced in SQL: the participant count is derived from rows inside the
// same transaction as the insert, the room code and the participant pair
// carry unique constraints, and score_events has one row per round per
// participant.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

const roomColumns = `id, name, code, status, host_id, max_players, is_private, participant_count, category, current_word, created_at`

func scanRoom(row pgx.Row) (*internal.Room, error) {
	var room internal.Room
	err := row.Scan(
		&room.Id, &room.Name, &room.Code, &room.Status, &room.HostId,
		&room.MaxPlayers, &room.IsPrivate, &room.ParticipantCount,
		&room.Category, &room.CurrentWord, &room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.ErrRoomNotFound
		}
		return nil, fmt.Errorf("scan room: %w", err)
	}
	return &room, nil
}

func (s *PostgresStore) CreateRoom(ctx context.Context, room *internal.Room) (*internal.Room, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := scanRoom(tx.QueryRow(ctx, `
		INSERT INTO rooms (id, name, code, status, host_id, max_players, is_private, participant_count, category)
		VALUES ($1, $2, $3, 'waiting', $4, $5, $6, 1, $7)
		RETURNING `+roomColumns,
		uuid.NewString(), room.Name, room.Code, room.HostId, room.MaxPlayers, room.IsPrivate, room.Category,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrCodeTaken
		}
		return nil, err
	}

	// The creator is the first participant, registered in the same
	// transaction so participant_count never disagrees with the rows.
	_, err = tx.Exec(ctx, `
		INSERT INTO room_participants (room_id, user_id, joined_at)
		VALUES ($1, $2, $3)`,
		created.Id, room.HostId, created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, id string) (*internal.Room, error) {
	return scanRoom(s.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
}

func (s *PostgresStore) GetRoomByNameOrCode(ctx context.Context, query string) (*internal.Room, error) {
	return scanRoom(s.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE name = $1 OR code = $1 LIMIT 1`, query))
}

func (s *PostgresStore) ListRoomsByStatus(ctx context.Context, status internal.RoomStatus, search string) ([]internal.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE status = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC, id`,
		status, search,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]internal.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

func (s *PostgresStore) UpdateRoomStatus(ctx context.Context, id string, status internal.RoomStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms
		SET status = $2,
		    current_word = CASE WHEN $2 = 'playing' THEN current_word ELSE '' END
		WHERE id = $1 AND status <> 'finished'`,
		id, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.missingRoomError(ctx, id)
	}
	return nil
}

func (s *PostgresStore) SetCurrentWord(ctx context.Context, id string, word string) error {
	if word == "" {
		tag, err := s.pool.Exec(ctx,
			`UPDATE rooms SET current_word = '' WHERE id = $1 AND status <> 'finished'`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return s.missingRoomError(ctx, id)
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET current_word = $2
		WHERE id = $1 AND status = 'playing' AND current_word = ''`,
		id, word,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		room, err := s.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case room.Status == internal.StatusFinished:
			return internal.ErrRoomFinished
		case room.Status != internal.StatusPlaying:
			return internal.ErrRoomNotPlaying
		default:
			return internal.ErrWordAlreadySet
		}
	}
	return nil
}

func (s *PostgresStore) SetRoomHost(ctx context.Context, id string, hostId string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET host_id = $2
		WHERE id = $1
		  AND EXISTS (SELECT 1 FROM room_participants WHERE room_id = $1 AND user_id = $2)`,
		id, hostId,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetRoom(ctx, id); err != nil {
			return err
		}
		return internal.ErrParticipantNotFound
	}
	return nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, roomId, userId string) (*internal.Participant, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the room row so concurrent joins serialize; the count below is
	// then a consistent derived value, not a racy denormalized counter.
	var status internal.RoomStatus
	var maxPlayers int
	err = tx.QueryRow(ctx,
		`SELECT status, max_players FROM rooms WHERE id = $1 FOR UPDATE`, roomId,
	).Scan(&status, &maxPlayers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.ErrRoomNotFound
		}
		return nil, err
	}
	if status == internal.StatusFinished {
		return nil, internal.ErrRoomFinished
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM room_participants WHERE room_id = $1`, roomId,
	).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count >= maxPlayers {
		return nil, internal.ErrCapacityExceeded
	}

	participant := internal.Participant{RoomId: roomId, UserId: userId}
	err = tx.QueryRow(ctx, `
		INSERT INTO room_participants (room_id, user_id)
		VALUES ($1, $2)
		RETURNING joined_at, score`,
		roomId, userId,
	).Scan(&participant.JoinedAt, &participant.Score)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, internal.ErrAlreadyJoined
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE rooms
		SET participant_count = (SELECT count(*) FROM room_participants WHERE room_id = $1)
		WHERE id = $1`,
		roomId,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &participant, nil
}

func (s *PostgresStore) RemoveParticipant(ctx context.Context, roomId, userId string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2`,
		roomId, userId,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetRoom(ctx, roomId); err != nil {
			return err
		}
		return internal.ErrParticipantNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE rooms
		SET participant_count = (SELECT count(*) FROM room_participants WHERE room_id = $1)
		WHERE id = $1`,
		roomId,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListParticipants(ctx context.Context, roomId string) ([]internal.Participant, error) {
	if _, err := s.GetRoom(ctx, roomId); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT room_id, user_id, joined_at, score
		FROM room_participants
		WHERE room_id = $1
		ORDER BY score DESC, joined_at ASC`,
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]internal.Participant, 0)
	for rows.Next() {
		var p internal.Participant
		if err := rows.Scan(&p.RoomId, &p.UserId, &p.JoinedAt, &p.Score); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *PostgresStore) RecordScoreEvent(ctx context.Context, roomId, userId, roundId string, points int) (bool, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback(ctx)

	var status internal.RoomStatus
	err = tx.QueryRow(ctx, `SELECT status FROM rooms WHERE id = $1 FOR UPDATE`, roomId).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, internal.ErrRoomNotFound
		}
		return false, 0, err
	}
	if status == internal.StatusFinished {
		return false, 0, internal.ErrRoomFinished
	}

	// ON CONFLICT DO NOTHING is the server-side idempotency guard: the
	// second award for the same round is a no-op even from another client.
	tag, err := tx.Exec(ctx, `
		INSERT INTO score_events (room_id, user_id, round_id, points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id, user_id, round_id) DO NOTHING`,
		roomId, userId, roundId, points,
	)
	if err != nil {
		return false, 0, err
	}
	applied := tag.RowsAffected() == 1

	var total int
	if applied {
		err = tx.QueryRow(ctx, `
			UPDATE room_participants SET score = score + $3
			WHERE room_id = $1 AND user_id = $2
			RETURNING score`,
			roomId, userId, points,
		).Scan(&total)
	} else {
		err = tx.QueryRow(ctx, `
			SELECT score FROM room_participants WHERE room_id = $1 AND user_id = $2`,
			roomId, userId,
		).Scan(&total)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, internal.ErrParticipantNotFound
		}
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, err
	}
	return applied, total, nil
}

// missingRoomError distinguishes "no such room" from "room already
// finished" after a guarded update matched nothing.
func (s *PostgresStore) missingRoomError(ctx context.Context, id string) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.Status == internal.StatusFinished {
		return internal.ErrRoomFinished
	}
	return internal.ErrRoomNotFound
}
