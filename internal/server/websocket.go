package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/scythe504/hangparty-backend/internal"
	"github.com/scythe504/hangparty-backend/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected player: a websocket, the change-feed
// subscription for their room, and (once started) their guess session.
type wsClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	roomId string
	userId string

	sessionMu     sync.Mutex
	session       *engine.Session
	cancelCounter context.CancelFunc
}

func (c *wsClient) safeWriteJSON(v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn.WriteJSON(v)
}

// HandleWebSocket upgrades the connection and streams the room's change
// feed to the client while processing guess commands. The feed, not the
// command responses, is what clients converge on.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomId := mux.Vars(r)["roomId"]
	userId := r.URL.Query().Get("user_id")
	if roomId == "" || userId == "" {
		http.Error(w, "missing room id or user id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade failed: ", err)
		return
	}

	client := &wsClient{
		conn:   conn,
		roomId: roomId,
		userId: userId,
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := s.feed.Subscribe(ctx, roomId)

	go s.forwardEvents(ctx, client, events)

	log.Printf("[HandleWebSocket] user %s connected to room %s", userId, roomId)
	s.readMessages(ctx, client)

	cancel()
	unsubscribe()
	client.stopCountdown()
	conn.Close()
	log.Printf("[HandleWebSocket] user %s disconnected from room %s", userId, roomId)
}

// forwardEvents pushes every change event for the room to the client. A
// shared session waiting in Solved picks up the host's next word here.
func (s *Server) forwardEvents(ctx context.Context, c *wsClient, events <-chan internal.ChangeEvent) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}

			if err := c.safeWriteJSON(internal.Message[internal.ChangeEvent]{
				Type: "change_event",
				Data: event,
			}); err != nil {
				log.Printf("[forwardEvents] write to user %s failed: %v", c.userId, err)
				return
			}

			if event.Table == internal.TableRooms && event.Room != nil && event.Room.CurrentWord != "" {
				s.adoptAssignedWord(ctx, c, event.Room.CurrentWord)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) adoptAssignedWord(ctx context.Context, c *wsClient, answer string) {
	c.sessionMu.Lock()
	session := c.session
	c.sessionMu.Unlock()
	if session == nil {
		return
	}

	snap := session.AdoptAssigned(s.questionFor(answer))
	if snap.State == engine.StateCountdown {
		s.startCountdown(ctx, c)
		c.sendSessionState(snap)
	}
}

// questionFor recovers the bank entry for an answer so the clue survives
// the trip through the room row. Unknown answers still play, just clueless.
func (s *Server) questionFor(answer string) internal.Question {
	for _, q := range s.bank.Questions("") {
		if q.Answer == answer {
			return q
		}
	}
	return internal.Question{Answer: answer}
}

func (s *Server) readMessages(ctx context.Context, c *wsClient) {
	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error occured during websocket message %s, %v", c.userId, err)
			return
		}

		var baseMsg internal.Message[json.RawMessage]
		if err := json.Unmarshal(rawMessage, &baseMsg); err != nil {
			log.Printf("Failed to parse base message: %v", err)
			continue
		}

		switch baseMsg.Type {
		case "session_start":
			var req sessionStartRequest
			if err := json.Unmarshal(baseMsg.Data, &req); err != nil {
				log.Println("Error parsing data, wrong json", err)
				continue
			}
			s.handleSessionStart(ctx, c, req)

		case "guess_letter":
			var letter string
			if err := json.Unmarshal(baseMsg.Data, &letter); err != nil {
				log.Println("Error parsing data, wrong json", err)
				continue
			}
			s.handleGuess(ctx, c, letter)

		case "play_again":
			s.handlePlayAgain(ctx, c)
		}
	}
}

type sessionStartRequest struct {
	Mode     engine.Mode `json:"mode"`
	Category string      `json:"category,omitempty"`
}

// handleSessionStart builds the client's guess session. Shared mode plays
// the room's host-assigned word; race mode draws privately from the bank.
// Either way, solves award through the registry so the idempotency guard
// applies.
func (s *Server) handleSessionStart(ctx context.Context, c *wsClient, req sessionStartRequest) {
	award := func(roundId string) {
		total, err := s.manager.AwardScore(ctx, c.roomId, c.userId, roundId, internal.PointsPerSolve)
		if err != nil {
			log.Printf("[handleSessionStart] award failed for user %s round %s: %v", c.userId, roundId, err)
			return
		}
		if err := c.safeWriteJSON(internal.Message[internal.ScoreAwardedData]{
			Type: "score_awarded",
			Data: internal.ScoreAwardedData{
				RoomId:  c.roomId,
				UserId:  c.userId,
				RoundId: roundId,
				Points:  internal.PointsPerSolve,
				Total:   total,
			},
		}); err != nil {
			log.Printf("[handleSessionStart] write to user %s failed: %v", c.userId, err)
		}
	}

	var session *engine.Session
	switch req.Mode {
	case engine.ModeShared:
		room, err := s.store.GetRoom(ctx, c.roomId)
		if err != nil {
			c.sendError(err)
			return
		}
		if room.CurrentWord == "" {
			c.sendError(internal.ErrNoQuestionsAvailable)
			return
		}
		session = engine.NewSharedSession(s.questionFor(room.CurrentWord), award)

	case engine.ModeRace:
		var err error
		session, err = engine.NewSession(s.bank.Questions(req.Category), engine.ModeRace, award)
		if err != nil {
			c.sendError(err)
			return
		}

	default:
		log.Printf("[handleSessionStart] user %s sent unknown mode %q", c.userId, req.Mode)
		return
	}

	c.sessionMu.Lock()
	c.session = session
	c.sessionMu.Unlock()

	s.startCountdown(ctx, c)
	c.sendSessionState(session.Snapshot())
}

func (s *Server) handleGuess(ctx context.Context, c *wsClient, letter string) {
	c.sessionMu.Lock()
	session := c.session
	c.sessionMu.Unlock()
	if session == nil || letter == "" {
		return
	}

	snap := session.GuessLetter(rune(letter[0]))
	c.sendSessionState(snap)

	// A race session that solved mid-guess has already adopted the next
	// word and needs its countdown driven again.
	if snap.State == engine.StateCountdown {
		s.startCountdown(ctx, c)
	}
}

func (s *Server) handlePlayAgain(ctx context.Context, c *wsClient) {
	c.sessionMu.Lock()
	session := c.session
	c.sessionMu.Unlock()
	if session == nil {
		return
	}

	snap := session.PlayAgain()
	c.sendSessionState(snap)
	if snap.State == engine.StateCountdown {
		s.startCountdown(ctx, c)
	}
}

// startCountdown (re)launches the 1-second tick loop for the client's
// session, cancelling any previous loop first.
func (s *Server) startCountdown(ctx context.Context, c *wsClient) {
	c.sessionMu.Lock()
	if c.cancelCounter != nil {
		c.cancelCounter()
	}
	countdownCtx, cancel := context.WithCancel(ctx)
	c.cancelCounter = cancel
	session := c.session
	c.sessionMu.Unlock()

	go session.RunCountdown(countdownCtx, func(snap engine.Snapshot) {
		c.sendSessionState(snap)
	})
}

func (c *wsClient) stopCountdown() {
	c.sessionMu.Lock()
	if c.cancelCounter != nil {
		c.cancelCounter()
		c.cancelCounter = nil
	}
	c.sessionMu.Unlock()
}

func (c *wsClient) sendSessionState(snap engine.Snapshot) {
	if err := c.safeWriteJSON(internal.Message[engine.Snapshot]{
		Type: "session_state",
		Data: snap,
	}); err != nil {
		log.Printf("[sendSessionState] write to user %s failed: %v", c.userId, err)
	}
}

func (c *wsClient) sendError(err error) {
	if writeErr := c.safeWriteJSON(internal.Message[string]{
		Type: "error",
		Data: err.Error(),
	}); writeErr != nil {
		log.Printf("[sendError] write to user %s failed: %v", c.userId, writeErr)
	}
}
