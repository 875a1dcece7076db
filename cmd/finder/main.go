package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nitin1612/bus-tracking-app/internal/api"
	"github.com/Nitin1612/bus-tracking-app/internal/config"
	"github.com/Nitin1612/bus-tracking-app/internal/dataset"
	"github.com/Nitin1612/bus-tracking-app/internal/db"
	"github.com/Nitin1612/bus-tracking-app/internal/location"
	"github.com/Nitin1612/bus-tracking-app/internal/metrics"
	"github.com/Nitin1612/bus-tracking-app/internal/publisher"
	"github.com/Nitin1612/bus-tracking-app/internal/search"
	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/session"
)

func main() {
	// Load configuration from .env, optional CONFIG_FILE and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		log.Fatalf("load dataset (%s): %v", cfg.DatasetSource, err)
	}
	log.Printf("dataset loaded from %s: %s", cfg.DatasetSource, ds.Summary())
	idx := ds.Index()

	policy, err := selection.ParseConflictPolicy(cfg.ConflictPolicy)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.SuggestLimit)
		mcol.Dataset(len(ds.Stops), len(ds.Routes))
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	deps := session.Deps{
		Index:           idx,
		Ranker:          search.Ranker{Limit: cfg.SuggestLimit},
		Resolver:        selection.NewResolver(idx, policy),
		LocationTimeout: cfg.LocationTimeout,
	}
	if mcol != nil {
		deps.Metrics = mcol
		deps.PlannerMetrics = mcol
	}

	// NATS is optional: map events for external renderers and device location requests
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		deps.RendererFor = pub.Renderer
		if cfg.LocationSubject != "" {
			deps.LocatorFor = location.NewNATSLocator(pub.Conn(), cfg.LocationSubject, cfg.LocationTimeout).ForSession
			log.Printf("device location via nats request on %q", cfg.LocationSubject)
		}
	}
	if deps.LocatorFor == nil {
		log.Printf("no device location provider; stop paths need lat/lon in the request")
	}

	store := session.NewStore(cfg.SessionTTL, deps)
	defer store.Close()

	handler := api.NewHandler(idx, deps.Ranker, ds.Recent, store)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	log.Printf("finder listening on %s (conflict policy %s, %d suggestions per kind)", cfg.HTTPAddr, policy, cfg.SuggestLimit)

	// Block until context cancelled
	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Println("shutdown complete")
}

func loadDataset(ctx context.Context, cfg *config.Config) (*dataset.Dataset, error) {
	switch cfg.DatasetSource {
	case config.SourcePostgres:
		conn, err := openCityDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return dataset.LoadSQL(ctx, conn)
	case config.SourceSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		if err := db.EnsureSchema(ctx, conn); err != nil {
			return nil, err
		}
		return dataset.LoadSQL(ctx, conn)
	default:
		return dataset.LoadJSONDir(cfg.DataDir)
	}
}

// openCityDB connects to DATABASE_URL, or, when CITY is set, to the newest
// imported dataset database for that city.
func openCityDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	finalDSN := cfg.DatabaseURL
	if cfg.City != "" {
		// Connect to the cluster's 'postgres' database to read latest_dataset_imports
		rootDSN, err := db.WithDBName(cfg.DatabaseURL, "postgres")
		if err != nil {
			return nil, err
		}
		metaDB, err := db.Open(rootDSN)
		if err != nil {
			return nil, err
		}
		defer metaDB.Close()
		if err := db.Ping(ctx, metaDB); err != nil {
			return nil, err
		}
		name, err := db.ResolveLatestDatasetDBName(ctx, metaDB, cfg.City)
		if err != nil {
			return nil, err
		}
		if finalDSN, err = db.WithDBName(cfg.DatabaseURL, name); err != nil {
			return nil, err
		}
		log.Printf("using database %q for city %q", name, cfg.City)
	}
	conn, err := db.Open(finalDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
