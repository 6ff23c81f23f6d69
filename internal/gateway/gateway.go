package gateway

import (
	"context"
	"errors"

	"github.com/scythe504/hangparty-backend/internal"
)

// ErrCodeTaken signals a room-code collision on create. The caller retries
// with a fresh code; it never reaches API clients.
var ErrCodeTaken = errors.New("room code already taken")

// Store is the persistence half of the gateway. Implementations own every
// invariant that spans concurrent writers: capacity-checked joins, one score
// event per (room, user, round), and the terminal finished status.
type Store interface {
	// CreateRoom persists the room, assigns Id and CreatedAt, and registers
	// the host as the first participant in the same atomic step. Returns
	// ErrCodeTaken when the code is already in use.
	CreateRoom(ctx context.Context, room *internal.Room) (*internal.Room, error)

	GetRoom(ctx context.Context, id string) (*internal.Room, error)

	// GetRoomByNameOrCode resolves an exact match on name OR code.
	GetRoomByNameOrCode(ctx context.Context, query string) (*internal.Room, error)

	// ListRoomsByStatus returns rooms newest-first, optionally filtered by a
	// case-insensitive substring match on name.
	ListRoomsByStatus(ctx context.Context, status internal.RoomStatus, search string) ([]internal.Room, error)

	// UpdateRoomStatus transitions a room. Finished is terminal: any write to
	// a finished room fails with ErrRoomFinished.
	UpdateRoomStatus(ctx context.Context, id string, status internal.RoomStatus) error

	// SetCurrentWord assigns the active answer. A non-empty word requires
	// status playing and no word currently set; an empty word clears it.
	SetCurrentWord(ctx context.Context, id string, word string) error

	SetRoomHost(ctx context.Context, id string, hostId string) error

	// AddParticipant performs the capacity check and the insert as one atomic
	// operation, so two concurrent joins can never both slip past a full
	// room. The existing pair is ErrAlreadyJoined.
	AddParticipant(ctx context.Context, roomId, userId string) (*internal.Participant, error)

	RemoveParticipant(ctx context.Context, roomId, userId string) error

	ListParticipants(ctx context.Context, roomId string) ([]internal.Participant, error)

	// RecordScoreEvent awards points at most once per (room, user, round).
	// applied is false on a duplicate round id; total is the participant's
	// score after the call either way.
	RecordScoreEvent(ctx context.Context, roomId, userId, roundId string, points int) (applied bool, total int, err error)
}

// Feed is the realtime half of the gateway: a push notification per
// row-level change, filtered by room.
type Feed interface {
	Publish(ctx context.Context, event internal.ChangeEvent)

	// Subscribe returns a channel of events for one room, or for every room
	// when roomId is empty. The returned cancel func releases the
	// subscription; the channel closes afterwards.
	Subscribe(ctx context.Context, roomId string) (<-chan internal.ChangeEvent, func())
}

// EventRoomId extracts the room an event belongs to, whichever row type it
// carries.
func EventRoomId(event internal.ChangeEvent) string {
	switch {
	case event.Room != nil:
		return event.Room.Id
	case event.Participant != nil:
		return event.Participant.RoomId
	default:
		return ""
	}
}
