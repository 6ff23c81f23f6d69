package gateway_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/hangparty-backend/internal"
	"github.com/scythe504/hangparty-backend/internal/gateway"
)

func seedRoom(t *testing.T, store *gateway.MemoryStore, maxPlayers int) *internal.Room {
	t.Helper()
	created, err := store.CreateRoom(context.Background(), &internal.Room{
		Name:       "test room",
		Code:       "1234",
		HostId:     "host-1",
		MaxPlayers: maxPlayers,
	})
	require.NoError(t, err)
	return created
}

func TestCreateRoomRejectsTakenCode(t *testing.T) {
	store := gateway.NewMemoryStore()
	seedRoom(t, store, 4)

	_, err := store.CreateRoom(context.Background(), &internal.Room{
		Name:       "other room",
		Code:       "1234",
		HostId:     "host-2",
		MaxPlayers: 4,
	})
	assert.ErrorIs(t, err, gateway.ErrCodeTaken)
}

// Many concurrent joins against a small room: however the interleaving goes,
// the participant count must never exceed max_players.
func TestConcurrentJoinsNeverOverfill(t *testing.T) {
	store := gateway.NewMemoryStore()
	created := seedRoom(t, store, 4)
	ctx := context.Background()

	const contenders = 32
	var wg sync.WaitGroup
	admitted := make(chan string, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(userId string) {
			defer wg.Done()
			if _, err := store.AddParticipant(ctx, created.Id, userId); err == nil {
				admitted <- userId
			}
		}(fmt.Sprintf("user-%d", i))
	}
	wg.Wait()
	close(admitted)

	joined := 0
	for range admitted {
		joined++
	}
	assert.Equal(t, created.MaxPlayers-1, joined, "host holds one slot")

	room, err := store.GetRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.MaxPlayers, room.ParticipantCount)
	assert.LessOrEqual(t, room.ParticipantCount, room.MaxPlayers)
}

func TestSetCurrentWordGuards(t *testing.T) {
	store := gateway.NewMemoryStore()
	created := seedRoom(t, store, 4)
	ctx := context.Background()

	err := store.SetCurrentWord(ctx, created.Id, "CAT")
	assert.ErrorIs(t, err, internal.ErrRoomNotPlaying)

	require.NoError(t, store.UpdateRoomStatus(ctx, created.Id, internal.StatusPlaying))
	require.NoError(t, store.SetCurrentWord(ctx, created.Id, "CAT"))

	err = store.SetCurrentWord(ctx, created.Id, "DOG")
	assert.ErrorIs(t, err, internal.ErrWordAlreadySet)

	// clearing is always allowed while the room is live
	require.NoError(t, store.SetCurrentWord(ctx, created.Id, ""))
	require.NoError(t, store.SetCurrentWord(ctx, created.Id, "DOG"))
}

func TestFinishedRoomRejectsWrites(t *testing.T) {
	store := gateway.NewMemoryStore()
	created := seedRoom(t, store, 4)
	ctx := context.Background()

	require.NoError(t, store.UpdateRoomStatus(ctx, created.Id, internal.StatusFinished))

	err := store.UpdateRoomStatus(ctx, created.Id, internal.StatusPlaying)
	assert.ErrorIs(t, err, internal.ErrRoomFinished)

	_, err = store.AddParticipant(ctx, created.Id, "user-2")
	assert.ErrorIs(t, err, internal.ErrRoomFinished)

	err = store.SetCurrentWord(ctx, created.Id, "CAT")
	assert.ErrorIs(t, err, internal.ErrRoomFinished)

	_, _, err = store.RecordScoreEvent(ctx, created.Id, "host-1", "round-1", 10)
	assert.ErrorIs(t, err, internal.ErrRoomFinished)
}

func TestLeavingPlayingClearsCurrentWord(t *testing.T) {
	store := gateway.NewMemoryStore()
	created := seedRoom(t, store, 4)
	ctx := context.Background()

	require.NoError(t, store.UpdateRoomStatus(ctx, created.Id, internal.StatusPlaying))
	require.NoError(t, store.SetCurrentWord(ctx, created.Id, "CAT"))
	require.NoError(t, store.UpdateRoomStatus(ctx, created.Id, internal.StatusFinished))

	room, err := store.GetRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Empty(t, room.CurrentWord)
}

func TestSetRoomHostRequiresMembership(t *testing.T) {
	store := gateway.NewMemoryStore()
	created := seedRoom(t, store, 4)
	ctx := context.Background()

	err := store.SetRoomHost(ctx, created.Id, "stranger")
	assert.ErrorIs(t, err, internal.ErrParticipantNotFound)

	_, err = store.AddParticipant(ctx, created.Id, "user-2")
	require.NoError(t, err)
	require.NoError(t, store.SetRoomHost(ctx, created.Id, "user-2"))

	room, err := store.GetRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "user-2", room.HostId)
}

func TestBrokerRoutesByRoom(t *testing.T) {
	broker := gateway.NewBroker()
	ctx := context.Background()

	roomEvents, cancelRoom := broker.Subscribe(ctx, "room-a")
	defer cancelRoom()
	allEvents, cancelAll := broker.Subscribe(ctx, "")
	defer cancelAll()

	broker.Publish(ctx, internal.ChangeEvent{
		Table: internal.TableRooms,
		Type:  internal.EventUpdate,
		Room:  &internal.Room{Id: "room-b"},
	})
	broker.Publish(ctx, internal.ChangeEvent{
		Table: internal.TableRooms,
		Type:  internal.EventUpdate,
		Room:  &internal.Room{Id: "room-a"},
	})

	event := <-roomEvents
	assert.Equal(t, "room-a", event.Room.Id, "other rooms' events filtered out")

	first := <-allEvents
	second := <-allEvents
	assert.Equal(t, "room-b", first.Room.Id)
	assert.Equal(t, "room-a", second.Room.Id)

	select {
	case extra := <-roomEvents:
		t.Fatalf("unexpected extra event for room %s", extra.Room.Id)
	default:
	}
}

func TestBrokerCancelStopsDelivery(t *testing.T) {
	broker := gateway.NewBroker()
	ctx := context.Background()

	events, cancel := broker.Subscribe(ctx, "room-a")
	cancel()
	cancel() // idempotent

	_, open := <-events
	assert.False(t, open)

	// publishing after cancel must not panic on the closed channel
	broker.Publish(ctx, internal.ChangeEvent{
		Table: internal.TableRooms,
		Type:  internal.EventUpdate,
		Room:  &internal.Room{Id: "room-a"},
	})
}
