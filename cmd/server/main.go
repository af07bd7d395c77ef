// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/classcast/lobbyd/internal/auth"
	"github.com/classcast/lobbyd/internal/broadcast"
	"github.com/classcast/lobbyd/internal/database"
	"github.com/classcast/lobbyd/internal/handlers"
	"github.com/classcast/lobbyd/internal/lobby"
	"github.com/classcast/lobbyd/internal/middleware"
	"github.com/classcast/lobbyd/internal/scheduler"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
	} else {
		logger.Warn("PG_HOST not set, running without durable storage")
	}

	hub := broadcast.NewHub(logger)
	if os.Getenv("REDIS_ADDR") != "" {
		if err := broadcast.ConnectRedis(); err != nil {
			log.Fatalf("redis connect failed: %v", err)
		}
		go broadcast.RunRedisBridge(context.Background(), hub, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, events stay on this instance only")
	}

	engine := lobby.NewEngine(lobby.NewStore(), hub, logger)

	sched := scheduler.New(engine, logger)
	go sched.Run(context.Background())

	srv := handlers.NewServer(engine, hub, logger)
	handler := middleware.LogMiddleware(logger)(srv.Routes())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
