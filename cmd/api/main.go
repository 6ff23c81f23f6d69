package main

import (
	"context"
	"fmt"
	"log"

	"github.com/scythe504/hangparty-backend/internal/config"
	"github.com/scythe504/hangparty-backend/internal/gateway"
	"github.com/scythe504/hangparty-backend/internal/server"
	"github.com/scythe504/hangparty-backend/internal/words"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	bank, err := words.Load(cfg.WordsCSV)
	if err != nil {
		log.Fatalf("cannot load question bank: %s", err)
	}

	var store gateway.Store
	if cfg.DatabaseURL != "" {
		pg, err := gateway.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("cannot connect to postgres: %s", err)
		}
		defer pg.Close()
		store = pg
		log.Println("[main] using postgres store")
	} else {
		store = gateway.NewMemoryStore()
		log.Println("[main] DATABASE_URL not set, using in-memory store")
	}

	var feed gateway.Feed
	if cfg.RedisAddr != "" {
		rf, err := gateway.NewRedisFeed(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatalf("cannot connect to redis: %s", err)
		}
		defer rf.Close()
		feed = rf
		log.Println("[main] using redis change feed")
	} else {
		feed = gateway.NewBroker()
		log.Println("[main] REDIS_ADDR not set, using in-process change feed")
	}

	srv := server.NewServer(cfg.Port, store, feed, bank)

	log.Printf("Server starting on port %d", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		panic(fmt.Sprintf("cannot start server: %s", err))
	}
}
