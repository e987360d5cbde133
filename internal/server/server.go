package server

import (
	"fmt"
	"net/http"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	custommiddleware "pricewatch/internal/middleware"
	"pricewatch/internal/service"
	"pricewatch/internal/store"
	"pricewatch/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	store  store.ProductStore
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, productStore store.ProductStore) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize the extraction pipeline and service
	priceExtractor := extractor.New(cfg.Extractor, logger)
	trackerService := service.NewTrackerService(productStore, priceExtractor, logger)

	// Rate limit the scraping endpoints when redis is configured; each of
	// those requests costs outbound page fetches.
	var redisClient *redis.Client
	var scrapeLimiter func(http.Handler) http.Handler
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		scrapeLimiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 30,
			Window:            time.Minute,
			KeyPrefix:         "pricewatch:scrape",
		}, logger)
	}

	// Initialize handlers and register routes
	productHandler := transport.NewProductHandler(trackerService, logger)
	productHandler.RegisterRoutes(router, scrapeLimiter)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute, // extraction endpoints block on outbound fetches
		},
		config: cfg,
		logger: logger,
		store:  productStore,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close product store", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
