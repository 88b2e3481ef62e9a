// Command catalog scans a GEFS archive for sidecar index files, builds the
// coordinate labels of the archive and serves them over HTTP. Catalog
// entries are optionally published to Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/grib-catalog/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/grib-catalog/internal/adapter/kafka"
	"github.com/couchcryptid/grib-catalog/internal/adapter/objstore"
	"github.com/couchcryptid/grib-catalog/internal/catalog"
	"github.com/couchcryptid/grib-catalog/internal/config"
	"github.com/couchcryptid/grib-catalog/internal/dataset/gefs"
	"github.com/couchcryptid/grib-catalog/internal/observability"
	"github.com/couchcryptid/grib-catalog/internal/pipeline"
	"github.com/couchcryptid/grib-catalog/internal/tables"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("catalog exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (err error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	limited := objstore.NewLimited(store, cfg.MaxInFlight, metrics)
	fetcher := objstore.NewCachedFetcher(limited, cfg.FetchCacheSize, metrics)

	ds := gefs.New(gefs.WithRoot(cfg.Prefix))
	opts := []catalog.Option{
		catalog.WithPrefix(cfg.Prefix),
		catalog.WithExtension(cfg.Extension),
		catalog.WithMaxInFlight(cfg.MaxInFlight),
	}
	srvOpts := []httpadapter.Option{httpadapter.WithFetcher(fetcher)}

	if cfg.ParseIndexFiles {
		opts = append(opts, catalog.WithIndexParsing(fetcher))
		logger.Info("index file parsing enabled", "cache_size", cfg.FetchCacheSize)
	}

	// Parameter tables are optional (feature-flagged via GRIB_TABLES_DIR).
	if cfg.TablesDir != "" {
		params, err := tables.Load(afero.NewOsFs(), cfg.TablesDir)
		if err != nil {
			return err
		}
		logger.Info("parameter tables loaded",
			"dir", cfg.TablesDir,
			"parameters", params.Len(),
			"duplicate_abbrevs", params.DuplicateAbbreviationCount(),
		)
		opts = append(opts, catalog.WithParameters(params))
		srvOpts = append(srvOpts, httpadapter.WithParameters(params))
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if cerr := writer.Close(); cerr != nil {
				err = multierr.Append(err, cerr)
			}
		}()
		opts = append(opts, catalog.WithSink(writer, cfg.BatchSize))
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "batch_size", cfg.BatchSize)
	}

	agg := catalog.New(limited, ds, logger, metrics, opts...)
	p := pipeline.New(agg, cfg.RefreshInterval, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, agg, logger, srvOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (objstore.Store, error) {
	if cfg.LocalDir != "" {
		logger.Info("using local archive", "dir", cfg.LocalDir)
		return objstore.NewFSStore(afero.NewOsFs(), cfg.LocalDir), nil
	}
	logger.Info("using s3 archive", "bucket", cfg.Bucket, "region", cfg.AWSRegion, "unsigned", cfg.SkipSignature)
	return objstore.NewS3Store(ctx, objstore.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		SkipSignature:   cfg.SkipSignature,
	})
}
