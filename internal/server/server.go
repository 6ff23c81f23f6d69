package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/scythe504/hangparty-backend/internal/gateway"
	"github.com/scythe504/hangparty-backend/internal/room"
	"github.com/scythe504/hangparty-backend/internal/words"
)

type Server struct {
	port int

	manager *room.Manager
	store   gateway.Store
	feed    gateway.Feed
	bank    *words.Bank
}

func NewServer(port int, store gateway.Store, feed gateway.Feed, bank *words.Bank) *http.Server {
	s := &Server{
		port:    port,
		manager: room.NewManager(store, feed, bank),
		store:   store,
		feed:    feed,
		bank:    bank,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
