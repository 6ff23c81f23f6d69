package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/scythe504/hangparty-backend/internal"
	"github.com/scythe504/hangparty-backend/internal/utils"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.HelloWorldHandler)

	r.HandleFunc("/categories", s.ListCategories).Methods(http.MethodGet)

	r.HandleFunc("/rooms", s.CreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms", s.ListWaitingRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms/resolve", s.ResolveRoom).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomId}/join", s.JoinRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/leave", s.LeaveRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/start", s.StartGame).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/word", s.AssignWord).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/word/clear", s.ClearWord).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/finish", s.FinishRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/participants", s.ListParticipants).Methods(http.MethodGet)

	r.HandleFunc("/ws/{roomId}", s.HandleWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "Hello World"}

	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Printf("error handling JSON marshal. Err: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	_, _ = w.Write(jsonResp)
}

func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, time.Now().UnixMilli(), s.bank.AllCategories())
}

type createRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	IsPrivate  bool   `json:"is_private"`
	Category   string `json:"category"`
	HostId     string `json:"host_id"`
}

func (s *Server) CreateRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, startTime, "invalid request body")
		return
	}

	room, err := s.manager.CreateRoom(r.Context(), req.Name, req.MaxPlayers, req.IsPrivate, req.Category, req.HostId)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusCreated, startTime, room)
}

func (s *Server) ListWaitingRooms(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	rooms, err := s.manager.ListWaitingRooms(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, rooms)
}

func (s *Server) ResolveRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	query := r.URL.Query().Get("q")
	if query == "" {
		s.respond(w, http.StatusBadRequest, startTime, "missing q parameter")
		return
	}

	room, err := s.manager.ResolveRoom(r.Context(), query)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, room)
}

type roomActionRequest struct {
	UserId string `json:"user_id"`
	Code   string `json:"code,omitempty"`
}

func (s *Server) JoinRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]

	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, startTime, "invalid request body")
		return
	}

	participant, err := s.manager.JoinRoom(r.Context(), roomId, req.UserId, req.Code)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}

	room, err := s.store.GetRoom(r.Context(), roomId)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, internal.ParticipantJoinedData{
		Participant:      participant,
		ParticipantCount: room.ParticipantCount,
		CanStart:         room.CanStartGame(),
	})
}

func (s *Server) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]

	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, startTime, "invalid request body")
		return
	}

	if err := s.manager.LeaveRoom(r.Context(), roomId, req.UserId); err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, "left")
}

func (s *Server) StartGame(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]

	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, startTime, "invalid request body")
		return
	}

	if err := s.manager.StartGame(r.Context(), roomId, req.UserId); err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, "started")
}

func (s *Server) AssignWord(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]

	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, startTime, "invalid request body")
		return
	}

	question, err := s.manager.AssignWord(r.Context(), roomId, req.UserId)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}

	// The host gets the clue back; everyone else learns about the word from
	// the change feed, masked.
	s.respond(w, http.StatusOK, startTime, internal.WordAssignedData{
		RoomId:     roomId,
		Clue:       question.Clue,
		MaskedWord: utils.GetMaskedWord(question.Answer),
	})
}

func (s *Server) ClearWord(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]

	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, startTime, "invalid request body")
		return
	}

	if err := s.manager.ClearWord(r.Context(), roomId, req.UserId); err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, "cleared")
}

func (s *Server) FinishRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]

	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, startTime, "invalid request body")
		return
	}

	if err := s.manager.FinishRoom(r.Context(), roomId, req.UserId); err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, "finished")
}

func (s *Server) ListParticipants(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]

	participants, err := s.manager.ListParticipants(r.Context(), roomId)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}

	s.respond(w, http.StatusOK, startTime, participants)
}

// respond writes the timed JSON envelope every endpoint shares.
func (s *Server) respond(w http.ResponseWriter, statusCode int, startTime int64, data any) {
	endTime := time.Now().UnixMilli()
	resp := internal.Response{
		StatusCode:    statusCode,
		RespStartTime: startTime,
		RespEndTime:   endTime,
		NetRespTime:   endTime - startTime,
		Data:          data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, startTime int64, err error) {
	s.respond(w, statusFor(err), startTime, err.Error())
}

// statusFor maps the typed error taxonomy onto HTTP statuses. Anything
// unrecognized is a backend/transport failure propagated as 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, internal.ErrEmptyRoomName),
		errors.Is(err, internal.ErrInvalidMaxPlayers),
		errors.Is(err, internal.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, internal.ErrNotHost),
		errors.Is(err, internal.ErrInvalidPasscode):
		return http.StatusForbidden
	case errors.Is(err, internal.ErrRoomNotFound),
		errors.Is(err, internal.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, internal.ErrCapacityExceeded),
		errors.Is(err, internal.ErrInsufficientPlayers),
		errors.Is(err, internal.ErrAlreadyJoined),
		errors.Is(err, internal.ErrRoomFinished),
		errors.Is(err, internal.ErrRoomNotPlaying),
		errors.Is(err, internal.ErrWordAlreadySet),
		errors.Is(err, internal.ErrNoQuestionsAvailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
