// cmd/background-worker/main.go
//
// Stateless entry point for triggers that arrive while no notifier process
// is running. Each invocation rebuilds only the dependencies one render
// needs and exits; it shares no memory with a live notifier.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	appaws "push-pipeline/internal/common/aws"
	"push-pipeline/internal/common/config"
	"push-pipeline/internal/common/database"
	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/notify/audit"
	"push-pipeline/internal/notify/dispatch"
	"push-pipeline/internal/notify/ident"
	"push-pipeline/internal/notify/render"
	"push-pipeline/internal/notify/sink"
	"push-pipeline/internal/transport"
)

func main() {
	trigger := flag.String("trigger", "", "Raw trigger JSON; reads stdin when empty")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	blob := []byte(*trigger)
	if len(blob) == 0 {
		blob, err = io.ReadAll(os.Stdin)
		if err != nil {
			zapLog.Fatal("trigger read failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch init failed", zap.Error(err))
	}

	snsClient, err := appaws.NewSNSClient(ctx, cfg.Transport.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	snsTransport := transport.NewSNSTransport(snsClient, cfg.Transport.AWS.SNS.PlatformApplicationARN, log)
	defer snsTransport.Close()

	writer := audit.NewWriter(
		esClient,
		cfg.Database.Elasticsearch.AuditIndex,
		cfg.App.Platform,
		cfg.Notifications.InfoCap,
		config.GetDuration(cfg.Notifications.AuditTimeout),
		log,
	)

	renderer := render.New(
		snsTransport,
		ident.New(),
		writer,
		config.GetDuration(cfg.Transport.DisplayTimeout),
		log,
	)

	snk := sink.New(writer, nil, nil, sink.AlertConfig{}, log)

	handler := dispatch.NewBackgroundHandler(renderer, writer, snk, dispatch.Options{
		RenderOnDataOnly: cfg.Notifications.RenderOnDataOnly,
	}, log)

	handler.HandleRaw(ctx, blob)
}
