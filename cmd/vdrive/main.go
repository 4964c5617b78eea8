// Command vdrive serves a hierarchical drive over a flat object store.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/vdrive/internal/bookmarks"
	bookmarksmysql "github.com/koustreak/vdrive/internal/bookmarks/mysql"
	bookmarkspg "github.com/koustreak/vdrive/internal/bookmarks/postgres"
	"github.com/koustreak/vdrive/internal/config"
	"github.com/koustreak/vdrive/internal/icons"
	"github.com/koustreak/vdrive/internal/logger"
	"github.com/koustreak/vdrive/internal/objstore"
	"github.com/koustreak/vdrive/internal/objstore/memory"
	"github.com/koustreak/vdrive/internal/objstore/minio"
	"github.com/koustreak/vdrive/internal/search"
	"github.com/koustreak/vdrive/internal/server"
	"github.com/koustreak/vdrive/internal/vfs"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults apply when omitted)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.New(nil).Fatal(err.Error())
		}
		cfg = loaded
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer store.Close()
	log.With().Str("provider", cfg.Store.Provider).Logger().Info("object store connected")

	resolver := icons.NewResolver(store, &icons.Config{
		CacheTTL:         cfg.Icons.CacheTTL,
		URLTTL:           cfg.Icons.URLTTL,
		UploadURLTTL:     cfg.Icons.UploadURLTTL,
		ProbeConcurrency: cfg.Icons.ProbeParallel,
	})
	defer resolver.Shutdown()

	searcher := search.New(store, &search.Config{
		ScanLimit: cfg.Search.ScanLimit,
		CacheTTL:  cfg.Search.CacheTTL,
	})
	defer searcher.Shutdown()

	drive := vfs.New(store, resolver, nil)

	bookmarkStore, err := openBookmarks(ctx, cfg)
	if err != nil {
		log.Fatal(err.Error())
	}
	if bookmarkStore != nil {
		defer bookmarkStore.Close()
		drive = drive.WithDecorator(bookmarks.Decorator(bookmarkStore))
		log.With().Str("driver", cfg.Bookmarks.Driver).Logger().Info("bookmarks enabled")
	}

	srv := server.New(&server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, log, store, drive, resolver, searcher, bookmarkStore)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil {
			log.Fatal(err.Error())
		}
	case <-ctx.Done():
		log.Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.With().Err(err).Logger().Error("shutdown failed")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (objstore.Store, error) {
	if cfg.Store.Provider == "memory" {
		return memory.New(), nil
	}

	storeCfg := objstore.DefaultConfig(
		cfg.Store.Endpoint, cfg.Store.AccessKey, cfg.Store.SecretKey, cfg.Store.Bucket)
	storeCfg.UseSSL = cfg.Store.UseSSL
	storeCfg.Region = cfg.Store.Region
	if cfg.Store.DialTimeout > 0 {
		storeCfg.DialTimeout = cfg.Store.DialTimeout
	}
	if cfg.Store.CallTimeout > 0 {
		storeCfg.CallTimeout = cfg.Store.CallTimeout
	}
	return minio.New(ctx, storeCfg)
}

// openBookmarks returns nil when no DSN is configured; bookmarks are
// strictly optional.
func openBookmarks(ctx context.Context, cfg *config.Config) (bookmarks.Store, error) {
	if cfg.Bookmarks.DSN == "" {
		return nil, nil
	}

	bmCfg := bookmarks.DefaultConfig(cfg.Bookmarks.DSN)
	switch cfg.Bookmarks.Driver {
	case "mysql":
		bmCfg.Driver = bookmarks.DriverMySQL
		return bookmarksmysql.New(ctx, bmCfg)
	default:
		return bookmarkspg.New(ctx, bmCfg)
	}
}
