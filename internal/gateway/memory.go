package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scythe504/hangparty-backend/internal"
)

// MemoryStore keeps all rooms in process. Single-node deployments and tests
// use it directly; it honors the same atomicity contract as the Postgres
// implementation by doing every read-modify-write under one lock.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*memoryRoom
	codes map[string]string // code -> room id
}

type memoryRoom struct {
	room         internal.Room
	participants map[string]internal.Participant
	scoreEvents  map[string]bool // "userId/roundId"
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*memoryRoom),
		codes: make(map[string]string),
	}
}

func (m *MemoryStore) CreateRoom(_ context.Context, room *internal.Room) (*internal.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.codes[room.Code]; taken {
		return nil, ErrCodeTaken
	}

	created := *room
	created.Id = uuid.NewString()
	created.CreatedAt = time.Now()
	created.Status = internal.StatusWaiting
	created.ParticipantCount = 1

	entry := &memoryRoom{
		room:         created,
		participants: make(map[string]internal.Participant),
		scoreEvents:  make(map[string]bool),
	}
	entry.participants[created.HostId] = internal.Participant{
		RoomId:   created.Id,
		UserId:   created.HostId,
		JoinedAt: created.CreatedAt,
	}

	m.rooms[created.Id] = entry
	m.codes[created.Code] = created.Id

	result := created
	return &result, nil
}

func (m *MemoryStore) GetRoom(_ context.Context, id string) (*internal.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.rooms[id]
	if !ok {
		return nil, internal.ErrRoomNotFound
	}

	room := entry.room
	return &room, nil
}

func (m *MemoryStore) GetRoomByNameOrCode(_ context.Context, query string) (*internal.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, entry := range m.rooms {
		if entry.room.Name == query || entry.room.Code == query {
			room := entry.room
			return &room, nil
		}
	}

	return nil, internal.ErrRoomNotFound
}

func (m *MemoryStore) ListRoomsByStatus(_ context.Context, status internal.RoomStatus, search string) ([]internal.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(search)
	rooms := make([]internal.Room, 0)
	for _, entry := range m.rooms {
		if entry.room.Status != status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(entry.room.Name), needle) {
			continue
		}
		rooms = append(rooms, entry.room)
	}

	// Newest first, id as tiebreak so ordering is stable.
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].Id < rooms[j].Id
	})

	return rooms, nil
}

func (m *MemoryStore) UpdateRoomStatus(_ context.Context, id string, status internal.RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.rooms[id]
	if !ok {
		return internal.ErrRoomNotFound
	}
	if entry.room.Status == internal.StatusFinished {
		return internal.ErrRoomFinished
	}

	entry.room.Status = status
	if status != internal.StatusPlaying {
		entry.room.CurrentWord = ""
	}
	return nil
}

func (m *MemoryStore) SetCurrentWord(_ context.Context, id string, word string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.rooms[id]
	if !ok {
		return internal.ErrRoomNotFound
	}
	if entry.room.Status == internal.StatusFinished {
		return internal.ErrRoomFinished
	}

	if word == "" {
		entry.room.CurrentWord = ""
		return nil
	}

	if entry.room.Status != internal.StatusPlaying {
		return internal.ErrRoomNotPlaying
	}
	if entry.room.CurrentWord != "" {
		return internal.ErrWordAlreadySet
	}

	entry.room.CurrentWord = word
	return nil
}

func (m *MemoryStore) SetRoomHost(_ context.Context, id string, hostId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.rooms[id]
	if !ok {
		return internal.ErrRoomNotFound
	}
	if _, joined := entry.participants[hostId]; !joined {
		return internal.ErrParticipantNotFound
	}

	entry.room.HostId = hostId
	return nil
}

func (m *MemoryStore) AddParticipant(_ context.Context, roomId, userId string) (*internal.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.rooms[roomId]
	if !ok {
		return nil, internal.ErrRoomNotFound
	}
	if entry.room.Status == internal.StatusFinished {
		return nil, internal.ErrRoomFinished
	}
	if _, joined := entry.participants[userId]; joined {
		return nil, internal.ErrAlreadyJoined
	}
	// Derived count, checked and updated under the same lock. This is the
	// single place the capacity invariant is enforced.
	if len(entry.participants) >= entry.room.MaxPlayers {
		return nil, internal.ErrCapacityExceeded
	}

	participant := internal.Participant{
		RoomId:   roomId,
		UserId:   userId,
		JoinedAt: time.Now(),
	}
	entry.participants[userId] = participant
	entry.room.ParticipantCount = len(entry.participants)

	return &participant, nil
}

func (m *MemoryStore) RemoveParticipant(_ context.Context, roomId, userId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.rooms[roomId]
	if !ok {
		return internal.ErrRoomNotFound
	}
	if _, joined := entry.participants[userId]; !joined {
		return internal.ErrParticipantNotFound
	}

	delete(entry.participants, userId)
	entry.room.ParticipantCount = len(entry.participants)
	return nil
}

func (m *MemoryStore) ListParticipants(_ context.Context, roomId string) ([]internal.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.rooms[roomId]
	if !ok {
		return nil, internal.ErrRoomNotFound
	}

	participants := make([]internal.Participant, 0, len(entry.participants))
	for _, p := range entry.participants {
		participants = append(participants, p)
	}
	internal.SortParticipants(participants)

	return participants, nil
}

func (m *MemoryStore) RecordScoreEvent(_ context.Context, roomId, userId, roundId string, points int) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.rooms[roomId]
	if !ok {
		return false, 0, internal.ErrRoomNotFound
	}
	if entry.room.Status == internal.StatusFinished {
		return false, 0, internal.ErrRoomFinished
	}

	participant, joined := entry.participants[userId]
	if !joined {
		return false, 0, internal.ErrParticipantNotFound
	}

	key := fmt.Sprintf("%s/%s", userId, roundId)
	if entry.scoreEvents[key] {
		return false, participant.Score, nil
	}

	entry.scoreEvents[key] = true
	participant.Score += points
	entry.participants[userId] = participant

	return true, participant.Score, nil
}
