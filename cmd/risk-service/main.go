package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/vitalsight-ai/platform/pkg/api"
	apimetrics "github.com/vitalsight-ai/platform/pkg/api/metrics"
	"github.com/vitalsight-ai/platform/pkg/api/middleware"
	"github.com/vitalsight-ai/platform/pkg/common/config"
	"github.com/vitalsight-ai/platform/pkg/common/database"
	"github.com/vitalsight-ai/platform/pkg/common/kafka"
	"github.com/vitalsight-ai/platform/pkg/common/logger"
	"github.com/vitalsight-ai/platform/pkg/patient"
	"github.com/vitalsight-ai/platform/pkg/risk"
	"github.com/vitalsight-ai/platform/pkg/risk/attribution"
	"github.com/vitalsight-ai/platform/pkg/risk/explain"
	"github.com/vitalsight-ai/platform/pkg/risk/features"
	"github.com/vitalsight-ai/platform/pkg/risk/knowledge"
	"github.com/vitalsight-ai/platform/pkg/risk/scorer"
	"github.com/vitalsight-ai/platform/pkg/storage"
)

func main() {
	logger.Init("risk-service")
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	repo := patient.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate patient tables")
	}

	redisClient := database.GetRedis()
	featureStore := storage.NewFeatureStore(redisClient, cfg.FeatureCachePrefix, cfg.FeatureCacheTTL)

	kb, err := knowledge.Load(cfg.KnowledgeConfigPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Knowledge config unreadable, using compiled defaults")
	}

	var riskScorer scorer.Scorer = scorer.NewRuleScorer(scorer.NewGaussianNoise(cfg.RiskNoiseSigma))
	if cfg.ModelArtifactDir != "" {
		riskScorer = scorer.NewArtifactScorer(cfg.ModelArtifactDir, cfg.ModelName, riskScorer)
	}

	producer := kafka.NewProducer(cfg.PredictionEventsTopic)
	defer producer.Close()

	service := risk.NewService(
		repo,
		features.NewExtractor(repo),
		riskScorer,
		attribution.NewEngine(nil),
		explain.NewGenerator(kb),
		featureStore,
		producer,
		cfg.ModelVersion,
		cfg.BatchMaxWorkers,
	)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		apimetrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	api.NewHandler(service).Register(apiRouter)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Risk Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Risk Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close PostgreSQL")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Redis")
	}

	logger.Log.Info("Risk Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
