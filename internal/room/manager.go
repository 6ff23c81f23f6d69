package room

import (
	"context"
	"errors"
	"log"

	"github.com/scythe504/hangparty-backend/internal"
	"github.com/scythe504/hangparty-backend/internal/gateway"
	"github.com/scythe504/hangparty-backend/internal/utils"
	"github.com/scythe504/hangparty-backend/internal/words"
)

// =============================================================================
// ROOM LIFECYCLE + PARTICIPANT REGISTRY
// =============================================================================

// codeAttempts bounds the retry loop for 4-digit code allocation. The
// namespace has 10k slots, so collisions stay rare until the waiting-room
// population gets absurd.
const codeAttempts = 8

// Manager validates commands and funnels every mutation through the gateway
// store. It keeps no authoritative local copy: the change feed it publishes
// to is the source of truth the clients converge on.
type Manager struct {
	store gateway.Store
	feed  gateway.Feed
	bank  *words.Bank
}

func NewManager(store gateway.Store, feed gateway.Feed, bank *words.Bank) *Manager {
	return &Manager{store: store, feed: feed, bank: bank}
}

// CreateRoom validates room parameters, allocates a unique code and persists
// the room with the creator registered as host and first participant.
func (m *Manager) CreateRoom(ctx context.Context, name string, maxPlayers int, isPrivate bool, category, hostId string) (*internal.Room, error) {
	if name == "" {
		return nil, internal.ErrEmptyRoomName
	}
	if maxPlayers < 1 || maxPlayers > internal.MaxPlayersPerRoom {
		return nil, internal.ErrInvalidMaxPlayers
	}
	if category != "" && !m.bank.HasCategory(category) {
		return nil, internal.ErrUnknownCategory
	}

	room := &internal.Room{
		Name:       name,
		HostId:     hostId,
		MaxPlayers: maxPlayers,
		IsPrivate:  isPrivate,
		Category:   category,
	}

	var created *internal.Room
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		room.Code = utils.GenerateRoomCode(internal.RoomCodeLength)
		created, err = m.store.CreateRoom(ctx, room)
		if err == nil {
			break
		}
		if !errors.Is(err, gateway.ErrCodeTaken) {
			return nil, err
		}
		log.Printf("[CreateRoom] Code %s taken, retrying (attempt %d)", room.Code, attempt+1)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[CreateRoom] Created room %s (%q, code=%s, max=%d, private=%t) for host %s",
		created.Id, created.Name, created.Code, created.MaxPlayers, created.IsPrivate, hostId)

	m.feed.Publish(ctx, internal.ChangeEvent{
		Table: internal.TableRooms,
		Type:  internal.EventInsert,
		Room:  created,
	})
	return created, nil
}

// ListWaitingRooms returns joinable rooms newest-first, optionally filtered
// by a case-insensitive substring of the name.
func (m *Manager) ListWaitingRooms(ctx context.Context, search string) ([]internal.Room, error) {
	return m.store.ListRoomsByStatus(ctx, internal.StatusWaiting, search)
}

// ResolveRoom finds a room by exact name or code match.
func (m *Manager) ResolveRoom(ctx context.Context, nameOrCode string) (*internal.Room, error) {
	return m.store.GetRoomByNameOrCode(ctx, nameOrCode)
}

// JoinRoom registers a participant. The passcode gate runs first so a
// private room never leaks its fill state to a caller without the code; the
// capacity check itself happens atomically inside the store. Re-joining is
// an idempotent no-op so reconnects never duplicate a participant.
func (m *Manager) JoinRoom(ctx context.Context, roomId, userId, suppliedCode string) (*internal.Participant, error) {
	room, err := m.store.GetRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}

	if room.IsPrivate && suppliedCode != room.Code {
		log.Printf("[JoinRoom] Room %s: rejected user %s, wrong passcode", roomId, userId)
		return nil, internal.ErrInvalidPasscode
	}

	participant, err := m.store.AddParticipant(ctx, roomId, userId)
	if errors.Is(err, internal.ErrAlreadyJoined) {
		log.Printf("[JoinRoom] Room %s: user %s already joined, treating as reconnect", roomId, userId)
		participants, listErr := m.store.ListParticipants(ctx, roomId)
		if listErr != nil {
			return nil, listErr
		}
		for i := range participants {
			if participants[i].UserId == userId {
				return &participants[i], nil
			}
		}
		return nil, internal.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[JoinRoom] Room %s: user %s joined", roomId, userId)

	m.feed.Publish(ctx, internal.ChangeEvent{
		Table:       internal.TableParticipants,
		Type:        internal.EventInsert,
		Participant: participant,
	})
	m.publishRoomUpdate(ctx, roomId)

	return participant, nil
}

// LeaveRoom removes a participant. The last participant out finishes the
// room; a departing host hands the role to the earliest remaining joiner.
func (m *Manager) LeaveRoom(ctx context.Context, roomId, userId string) error {
	room, err := m.store.GetRoom(ctx, roomId)
	if err != nil {
		return err
	}

	if err := m.store.RemoveParticipant(ctx, roomId, userId); err != nil {
		return err
	}

	left := internal.ParticipantLeftData{UserId: userId}

	remaining, err := m.store.ListParticipants(ctx, roomId)
	if err != nil {
		return err
	}
	left.ParticipantCount = len(remaining)

	switch {
	case len(remaining) == 0:
		log.Printf("[LeaveRoom] Room %s is empty, finishing", roomId)
		if err := m.store.UpdateRoomStatus(ctx, roomId, internal.StatusFinished); err != nil &&
			!errors.Is(err, internal.ErrRoomFinished) {
			return err
		}
	case room.HostId == userId:
		// Host reassignment policy: earliest remaining joiner takes over, so
		// the room stays startable after a host disconnect.
		newHost := internal.EarliestJoiner(remaining)
		log.Printf("[LeaveRoom] Room %s: host %s left, reassigning to %s", roomId, userId, newHost.UserId)
		if err := m.store.SetRoomHost(ctx, roomId, newHost.UserId); err != nil {
			return err
		}
		left.NewHostId = newHost.UserId
	}

	m.feed.Publish(ctx, internal.ChangeEvent{
		Table: internal.TableParticipants,
		Type:  internal.EventDelete,
		Participant: &internal.Participant{
			RoomId: roomId,
			UserId: userId,
		},
	})
	m.publishRoomUpdate(ctx, roomId)

	log.Printf("[LeaveRoom] Room %s: user %s left, %d remaining", roomId, userId, left.ParticipantCount)
	return nil
}

// StartGame transitions the room to playing. Host-only, and at least two
// participants must be present.
func (m *Manager) StartGame(ctx context.Context, roomId, requesterId string) error {
	room, err := m.store.GetRoom(ctx, roomId)
	if err != nil {
		return err
	}
	if room.Status == internal.StatusFinished {
		return internal.ErrRoomFinished
	}
	if room.HostId != requesterId {
		return internal.ErrNotHost
	}
	if room.ParticipantCount < internal.MinPlayersToStart {
		return internal.ErrInsufficientPlayers
	}

	if err := m.store.UpdateRoomStatus(ctx, roomId, internal.StatusPlaying); err != nil {
		return err
	}

	log.Printf("[StartGame] Room %s: started by host %s with %d players",
		roomId, requesterId, room.ParticipantCount)
	m.publishRoomUpdate(ctx, roomId)
	return nil
}

// AssignWord draws a random question for the room and sets its answer as the
// current word. Host-only, only while playing, and only when no word is set.
func (m *Manager) AssignWord(ctx context.Context, roomId, requesterId string) (*internal.Question, error) {
	room, err := m.store.GetRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}
	if room.HostId != requesterId {
		return nil, internal.ErrNotHost
	}
	if room.Status != internal.StatusPlaying {
		if room.Status == internal.StatusFinished {
			return nil, internal.ErrRoomFinished
		}
		return nil, internal.ErrRoomNotPlaying
	}
	if room.CurrentWord != "" {
		return nil, internal.ErrWordAlreadySet
	}

	question, err := words.PickRandom(m.bank.Questions(room.Category), "")
	if err != nil {
		return nil, err
	}

	if err := m.store.SetCurrentWord(ctx, roomId, question.Answer); err != nil {
		return nil, err
	}

	log.Printf("[AssignWord] Room %s: host %s assigned a word (category=%q, len=%d)",
		roomId, requesterId, question.Category, len(question.Answer))
	m.publishRoomUpdate(ctx, roomId)
	return &question, nil
}

// ClearWord nulls the current word after a round resolves so the next
// AssignWord can run. Host-only.
func (m *Manager) ClearWord(ctx context.Context, roomId, requesterId string) error {
	room, err := m.store.GetRoom(ctx, roomId)
	if err != nil {
		return err
	}
	if room.HostId != requesterId {
		return internal.ErrNotHost
	}

	if err := m.store.SetCurrentWord(ctx, roomId, ""); err != nil {
		return err
	}

	m.publishRoomUpdate(ctx, roomId)
	return nil
}

// FinishRoom moves the room to its terminal state. Host-only; the store
// rejects every later write.
func (m *Manager) FinishRoom(ctx context.Context, roomId, requesterId string) error {
	room, err := m.store.GetRoom(ctx, roomId)
	if err != nil {
		return err
	}
	if room.HostId != requesterId {
		return internal.ErrNotHost
	}

	if err := m.store.UpdateRoomStatus(ctx, roomId, internal.StatusFinished); err != nil {
		return err
	}

	log.Printf("[FinishRoom] Room %s: finished by host %s", roomId, requesterId)
	m.publishRoomUpdate(ctx, roomId)
	return nil
}

// ListParticipants returns the scoreboard ordering: score descending, ties
// broken by earliest join.
func (m *Manager) ListParticipants(ctx context.Context, roomId string) ([]internal.Participant, error) {
	return m.store.ListParticipants(ctx, roomId)
}

// AwardScore applies a score delta at most once per (room, user, round).
// The duplicate case is a silent no-op: the engine may fire the award twice
// for the same solve (re-render, second tab) and the outcome must not
// double.
func (m *Manager) AwardScore(ctx context.Context, roomId, userId, roundId string, delta int) (int, error) {
	applied, total, err := m.store.RecordScoreEvent(ctx, roomId, userId, roundId, delta)
	if err != nil {
		return 0, err
	}
	if !applied {
		log.Printf("[AwardScore] Room %s: duplicate award for user %s round %s, ignored",
			roomId, userId, roundId)
		return total, nil
	}

	log.Printf("[AwardScore] Room %s: user %s +%d (round %s, total %d)",
		roomId, userId, delta, roundId, total)

	m.feed.Publish(ctx, internal.ChangeEvent{
		Table: internal.TableParticipants,
		Type:  internal.EventUpdate,
		Participant: &internal.Participant{
			RoomId: roomId,
			UserId: userId,
			Score:  total,
		},
	})
	return total, nil
}

// publishRoomUpdate re-reads the room and emits an update event. The fresh
// read matters: a concurrent writer may have changed the row since our
// write, and the feed must reflect the store, not our intent.
func (m *Manager) publishRoomUpdate(ctx context.Context, roomId string) {
	room, err := m.store.GetRoom(ctx, roomId)
	if err != nil {
		log.Printf("[publishRoomUpdate] Room %s: refetch failed: %v", roomId, err)
		return
	}
	m.feed.Publish(ctx, internal.ChangeEvent{
		Table: internal.TableRooms,
		Type:  internal.EventUpdate,
		Room:  room,
	})
}
