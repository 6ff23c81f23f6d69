package internal

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Change feed event types. The feed is the sole confirmation mechanism for
// writes: a client that issued a command treats the echoed event, not the
// HTTP response, as the authoritative result.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

type Table string

const (
	TableRooms        Table = "rooms"
	TableParticipants Table = "room_participants"
)

// ChangeEvent is one row-level notification from the gateway. Exactly one of
// Room/Participant is set, matching Table.
type ChangeEvent struct {
	Table       Table        `json:"table"`
	Type        EventType    `json:"event_type"`
	Room        *Room        `json:"room,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
}

type ParticipantJoinedData struct {
	Participant      *Participant `json:"participant"`
	ParticipantCount int          `json:"participant_count"`
	CanStart         bool         `json:"can_start"`
}

type ParticipantLeftData struct {
	UserId           string `json:"user_id"`
	ParticipantCount int    `json:"participant_count"`
	NewHostId        string `json:"new_host_id,omitempty"` // set when the host left
}

type WordAssignedData struct {
	RoomId     string `json:"room_id"`
	MaskedWord string `json:"masked_word"`
	Clue       string `json:"clue,omitempty"`
}

type ScoreAwardedData struct {
	RoomId  string `json:"room_id"`
	UserId  string `json:"user_id"`
	RoundId string `json:"round_id"`
	Points  int    `json:"points"`
	Total   int    `json:"total"`
}
