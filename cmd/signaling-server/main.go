package main

import (
	"context"
	"devconnect-backend/internal/api"
	"devconnect-backend/internal/api/router"
	"devconnect-backend/internal/database"
	"devconnect-backend/internal/env"
	"devconnect-backend/internal/queue"
	"devconnect-backend/internal/service/room"
	"devconnect-backend/internal/signaling"
	"log"

	"github.com/go-redis/redis/v8"
)

func main() {
	env.CheckRequired()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	var redisClient *redis.Client
	if addr := env.Get(env.SignalRedisURL); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: env.Get(env.SignalRedisPass),
			DB:       0,
		})
	}

	roomService := room.New(db)

	sweeper := room.NewSweeper(room.NewDynamoRepository(db), redisClient)
	go sweeper.Run(context.Background())

	hub := signaling.NewHub(roomService, signaling.NewPublisher(redisClient), queueManager)
	go hub.Run()

	handler := signaling.NewHandler(hub, []byte(env.MustGet(env.UserSecretKey)))

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		handler,
		router.UtilsRoutes("/api/ws/v1"),
		router.SignalingRoutes("/api/ws/v1"),
	)

	server.Run()
}
