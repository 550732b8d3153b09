package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fbastos/demandboard/internal/activity"
	"github.com/fbastos/demandboard/internal/event"
	"github.com/fbastos/demandboard/internal/eventbus"
	"github.com/fbastos/demandboard/internal/handler"
	"github.com/fbastos/demandboard/internal/realtime"
	"github.com/fbastos/demandboard/internal/seed"
	"github.com/fbastos/demandboard/internal/server"
	"github.com/fbastos/demandboard/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "demandboard.db"
	}

	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer st.Close()

	act := activity.NewSQLStore(st.DB())
	if err := act.CreateTable(ctx); err != nil {
		log.Fatalf("migrating activity table: %v", err)
	}

	if os.Getenv("SEED_DEMO") == "1" {
		if err := seed.Demo(ctx, st); err != nil {
			log.Fatalf("seeding demo data: %v", err)
		}
	}

	bus := eventbus.New(256)
	hub := realtime.NewHub()
	bus.Subscribe("realtime", hub)
	bus.Start(ctx)

	recorder := event.NewActivityRecorder(act)
	recorder.SetPublisher(bus)
	handler.SetRecorder(recorder)

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	err = server.Run(ctx, server.Config{
		Port:     port,
		Store:    st,
		Activity: act,
		Hub:      hub,
	})
	if err != nil {
		log.Printf("server stopped: %v", err)
	}
	bus.Stop()
}
