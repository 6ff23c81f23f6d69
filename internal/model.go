package internal

import (
	"time"
)

const (
	MaxPlayersPerRoom = 8
	MinPlayersToStart = 2

	MaxHealth        = 5
	SessionTarget    = 5
	CountdownSeconds = 3
	PointsPerSolve   = 10

	RoomCodeLength = 4
)

type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// Room is the shared game session container. The store is the authority for
// every field here; in-process copies are snapshots that the change feed
// refreshes.
type Room struct {
	Id               string     `json:"id"`
	Name             string     `json:"name"`
	Code             string     `json:"code"`
	Status           RoomStatus `json:"status"`
	HostId           string     `json:"host_id"`
	MaxPlayers       int        `json:"max_players"`
	IsPrivate        bool       `json:"is_private"`
	ParticipantCount int        `json:"participant_count"`
	Category         string     `json:"category,omitempty"`
	CurrentWord      string     `json:"current_word,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CanJoin reports whether the room accepts another participant. The store
// re-checks this atomically on insert; this copy exists for fast-path
// validation before any write is attempted.
func (r *Room) CanJoin() bool {
	return r.Status == StatusWaiting && r.ParticipantCount < r.MaxPlayers
}

func (r *Room) CanStartGame() bool {
	return r.Status == StatusWaiting && r.ParticipantCount >= MinPlayersToStart
}

func (r *Room) IsFull() bool {
	return r.ParticipantCount >= r.MaxPlayers
}

// Participant is one identity inside one room. (RoomId, UserId) is unique
// and Score only ever grows within a room's lifetime.
type Participant struct {
	RoomId   string    `json:"room_id"`
	UserId   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	Score    int       `json:"score"`
}

// Question is one word-bank entry: the clue shown to players and the hidden
// answer they guess letter by letter.
type Question struct {
	Category string `json:"category"`
	Clue     string `json:"clue"`
	Answer   string `json:"answer"`
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}
