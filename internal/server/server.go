package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tko-aly/usersvc/config"
	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/internal/db"
	"github.com/tko-aly/usersvc/internal/handlers"
	"github.com/tko-aly/usersvc/internal/mq"
	"github.com/tko-aly/usersvc/internal/services"
	"github.com/tko-aly/usersvc/internal/storage"
	"github.com/tko-aly/usersvc/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
}

// Deps are the externally owned resources the router is built on.
type Deps struct {
	DB       *sql.DB
	Codec    *auth.TokenCodec
	Events   *mq.UserEvents
	Receipts *storage.ReceiptStore
}

// New connects the configured backends and constructs a Server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var events *mq.UserEvents
	if queue != nil {
		events = mq.NewUserEvents(queue, cfg.MQ.EventChannel)
	} else {
		log.Printf("mq backend disabled, user events will not be published")
	}

	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		if queue != nil {
			_ = queue.Close()
		}
		_ = dbConn.Close()
		return nil, err
	}
	var receipts *storage.ReceiptStore
	if objects != nil {
		receipts = storage.NewReceiptStore(objects)
	} else {
		log.Printf("storage backend disabled, disclosure receipts will not be kept")
	}

	router := NewRouter(Deps{
		DB:       dbConn,
		Codec:    auth.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL),
		Events:   events,
		Receipts: receipts,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         queue,
	}, nil
}

// NewRouter wires repositories, services and handlers onto a chi router.
func NewRouter(deps Deps) *chi.Mux {
	userService := services.NewUserService(store.NewUserRepository(deps.DB))
	serviceRegistry := services.NewServiceRegistry(store.NewServiceRepository(deps.DB))

	authDeps := services.AuthDeps{
		Credentials: userService,
		Users:       userService,
		Persister:   userService,
		Services:    serviceRegistry,
	}
	// Typed nils must not reach the interface fields.
	var receiptReader handlers.ReceiptReader
	if deps.Events != nil {
		authDeps.Events = deps.Events
	}
	if deps.Receipts != nil {
		authDeps.Receipts = deps.Receipts
		receiptReader = deps.Receipts
	}
	authService := services.NewAuthService(deps.Codec, authDeps)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, userService, deps.Codec)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, authService, userService, deps.Codec)
	})
	router.Route("/services", func(r chi.Router) {
		handlers.ServiceRouter(r, serviceRegistry, userService, deps.Codec)
	})
	router.Route("/disclosures", func(r chi.Router) {
		handlers.DisclosureRouter(r, receiptReader, userService, deps.Codec)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if cerr := s.mq.Close(); cerr != nil {
			log.Printf("close mq: %v", cerr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
