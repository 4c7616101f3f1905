package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/ecosnap-api/internal/config"
	"github.com/Brownie44l1/ecosnap-api/internal/handlers"
	"github.com/Brownie44l1/ecosnap-api/internal/logging"
	"github.com/Brownie44l1/ecosnap-api/internal/model"
	"github.com/Brownie44l1/ecosnap-api/internal/router"
	"github.com/Brownie44l1/ecosnap-api/internal/storage"
	"github.com/Brownie44l1/ecosnap-api/internal/store"
	"github.com/Brownie44l1/ecosnap-api/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogJSON)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var objects *storage.Client
	if needsObjectStorage(cfg) {
		var err error
		objects, err = storage.NewClient(ctx)
		if err != nil {
			logger.Fatalf("Failed to create storage client: %v", err)
		}
		defer objects.Close()
	}

	if err := model.EnsureModel(ctx, objects, cfg.ModelBucket, cfg.ModelObject, cfg.ModelPath, logger); err != nil {
		logger.Fatalf("Failed to fetch model: %v", err)
	}

	logger.Infof("Loading model from: %s", cfg.ModelPath)
	modelServer, err := model.NewServer(cfg.ModelPath, model.Options{
		MetadataPath: cfg.ModelMetadataPath,
		LibraryPath:  cfg.ONNXLibraryPath,
		InputScale:   float32(cfg.InputScale),
	})
	if err != nil {
		logger.Fatalf("Failed to initialize model server: %v", err)
	}
	defer modelServer.Close()

	deps := handlers.Deps{
		Predictor:  modelServer,
		HTTPClient: &http.Client{Timeout: cfg.FetchTimeout},
		Telemetry:  telemetry.New(),
		Logger:     logger,
	}
	if cfg.Extended() {
		if cfg.UploadEnabled {
			deps.Uploader = storage.NewImageUploader(objects, cfg.UploadBucket, cfg.UploadFolder)
		}
		predictions, err := openStore(ctx, cfg)
		if err != nil {
			logger.Fatalf("Failed to open prediction store: %v", err)
		}
		defer predictions.Close()
		deps.Store = predictions
	}

	engine := router.New(cfg, handlers.NewHandler(deps), logger)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	logger.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"variant": cfg.PredictVariant,
		"store":   cfg.StoreBackend,
		"classes": modelServer.Metadata.Classes,
		"input":   modelServer.Metadata.InputShape,
		"layout":  modelServer.Metadata.Layout,
	}).Info("Server starting")
	logger.Info("Endpoints: GET /health, GET /info, GET /metrics, POST /predict")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server failed: %v", err)
	}
}

// needsObjectStorage reports whether a GCS client is required: the model is
// not on disk yet, or uploads are enabled.
func needsObjectStorage(cfg *config.Config) bool {
	if cfg.Extended() && cfg.UploadEnabled {
		return true
	}
	_, err := os.Stat(cfg.ModelPath)
	return err != nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.PredictionStore, error) {
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		return store.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCollection)
	case config.StoreSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	case config.StoreNone:
		return store.Nop{}, nil
	default:
		return nil, errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}
}
