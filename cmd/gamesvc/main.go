package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/gridline/tictac-services/configs"
	"github.com/gridline/tictac-services/internal/gamesvc/broker"
	svcconfig "github.com/gridline/tictac-services/internal/gamesvc/config"
	"github.com/gridline/tictac-services/internal/gamesvc/db"
	"github.com/gridline/tictac-services/internal/gamesvc/engine"
	handlers "github.com/gridline/tictac-services/internal/gamesvc/handlers"
	"github.com/gridline/tictac-services/internal/gamesvc/service"
	"github.com/gridline/tictac-services/internal/gamesvc/store"
	nats "github.com/gridline/tictac-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg := svcconfig.Load()

	// pg connection
	dbpool, err := db.Connect(cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	gameStore := store.NewGameStore(dbpool)
	messageStore := store.NewMessageStore(dbpool)

	bot := engine.NewBot(rand.New(rand.NewSource(time.Now().UnixNano())))
	gameService := service.NewGameService(gameStore, messageStore, bot)
	chatService := service.NewChatService(gameStore, messageStore)

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// init peer message broker
	broker := broker.NewBroker(n.Conn, gameService, chatService)

	// subscribe to socket service
	topic := "socket.service"
	sub, err := broker.SubscribeSocketService(topic)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// sweep expired games so abandoned records do not pile up
	sweepStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepStop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				deleted, err := gameService.CleanupExpired(ctx, cfg.GameTTL)
				cancel()
				if err != nil {
					log.Errorf("Error cleaning up expired games: %v", err)
					continue
				}
				if deleted > 0 {
					log.Infof("deleted %d old games", deleted)
				}
			}
		}
	}()

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(gameService, chatService)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("GAME_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	close(sweepStop)
	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
