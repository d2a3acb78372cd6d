// cmd/notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appaws "push-pipeline/internal/common/aws"
	"push-pipeline/internal/common/config"
	"push-pipeline/internal/common/database"
	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/common/observability"
	"push-pipeline/internal/notify/audit"
	"push-pipeline/internal/notify/dispatch"
	"push-pipeline/internal/notify/ident"
	"push-pipeline/internal/notify/render"
	"push-pipeline/internal/notify/sink"
	"push-pipeline/internal/notify/tokens"
	"push-pipeline/internal/transport"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notifier...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS clients ---
	snsClient, err := appaws.NewSNSClient(ctx, cfg.Transport.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}

	var sesClient *appaws.SESClient
	if cfg.Notifications.OperatorAlert.Enabled {
		sesClient, err = appaws.NewSESClient(ctx, cfg.Transport.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
	}
	zapLog.Info("AWS clients initialized")

	// --- Wire the pipeline ---
	snsTransport := transport.NewSNSTransport(snsClient, cfg.Transport.AWS.SNS.PlatformApplicationARN, log)

	writer := audit.NewWriter(
		esClient,
		cfg.Database.Elasticsearch.AuditIndex,
		cfg.App.Platform,
		cfg.Notifications.InfoCap,
		config.GetDuration(cfg.Notifications.AuditTimeout),
		log,
	)

	registry := tokens.NewRegistry(pg.DB, redisClient.GetClient(), snsTransport, writer, log)

	renderer := render.New(
		snsTransport,
		ident.New(),
		writer,
		config.GetDuration(cfg.Transport.DisplayTimeout),
		log,
	)

	var emailer sink.Emailer
	if sesClient != nil {
		emailer = sesClient
	}
	snk := sink.New(writer, obs, emailer, sink.AlertConfig{
		Enabled:   cfg.Notifications.OperatorAlert.Enabled,
		FromEmail: cfg.Notifications.OperatorAlert.FromEmail,
		ToEmail:   cfg.Notifications.OperatorAlert.ToEmail,
	}, log)

	service := dispatch.NewService(
		snsTransport,
		registry,
		renderer,
		writer,
		snk,
		redisClient.GetClient(),
		obs,
		dispatch.Options{
			RenderOnDataOnly: cfg.Notifications.RenderOnDataOnly,
			DedupeTTL:        time.Duration(cfg.Notifications.DedupeTTL) * time.Second,
		},
		log,
	)

	service.Initialize(ctx)
	zapLog.Info("Dispatcher initialized", zap.Int32("state", service.State()))

	// --- HTTP: provider webhook, health, metrics ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"state":  service.State(),
		})
	})
	registerWebhook(mux, snsTransport, zapLog)

	server := &http.Server{
		Addr:    ":8080",
		Handler: mux,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	zapLog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	service.Close()
	snsTransport.Close()
	zapLog.Info("Notifier stopped")
}

// registerWebhook mounts the inbound provider endpoints. SNS has no pull API
// for device-originated events, so the companion app/provider posts them
// here and the handlers feed the transport's streams.
func registerWebhook(mux *http.ServeMux, t *transport.SNSTransport, zapLog *zap.Logger) {
	decode := func(w http.ResponseWriter, r *http.Request, v interface{}) bool {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return false
		}
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return false
		}
		return true
	}

	mux.HandleFunc("/events/message", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		if !decode(w, r, &raw) {
			return
		}
		t.EmitForeground(raw)
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/events/opened", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		if !decode(w, r, &raw) {
			return
		}
		t.EmitOpened(raw)
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/events/token", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		if !decode(w, r, &body) {
			return
		}
		if err := t.RegisterDeviceToken(r.Context(), body.Token); err != nil {
			zapLog.Warn("device token registration failed", zap.Error(err))
		}
		t.EmitTokenRefresh(body.Token)
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/events/identity", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string `json:"userId"`
		}
		if !decode(w, r, &body) {
			return
		}
		t.EmitIdentityChange(body.UserID)
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/events/tap", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			NotificationID int    `json:"notificationId"`
			Payload        string `json:"payload"`
		}
		if !decode(w, r, &body) {
			return
		}
		t.EmitTap(transport.TapResponse{
			NotificationID: body.NotificationID,
			Payload:        body.Payload,
		})
		w.WriteHeader(http.StatusAccepted)
	})
}
