package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/go-playground/validator/v10"

	"ticketera/common/otel"
	inboundCron "ticketera/inbound/cron"
	inboundHttp "ticketera/inbound/http"
	"ticketera/outbound/store"
)

func runHttpServerCmd(ctx context.Context) {
	cfg := newCfg("env")

	if cfg.GetString("env") == "dev" {
		cpu, err := os.Create("http-cpu.prof")
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer cpu.Close()

		err = pprof.StartCPUProfile(cpu)
		if err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()

		mem, err := os.Create("http-mem.prof")
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		defer mem.Close()

		err = pprof.WriteHeapProfile(mem)
		if err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
		defer mem.Close()
	}

	shutdownTracing := otel.Init(ctx, cfg)
	defer shutdownTracing(context.Background())

	validate := validator.New()

	db := newDb(cfg)
	defer db.Close()

	cacheClient := newRedis(cfg)
	defer cacheClient.Close()

	natsConn := newNats(cfg)
	defer natsConn.Close()

	js := newJs(natsConn)
	createStreamWorkQueue(ctx, js)

	querier := store.New(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		slog.DebugContext(r.Context(), "health check")
		w.WriteHeader(http.StatusOK)
	})

	timeoutMiddleware := inboundHttp.TimeoutMiddleware(20 * time.Second)

	inboundHttp.RegisterAuthHttp(mux, cfg, querier, validate)
	inboundHttp.RegisterBusinessHttp(mux, cfg, db, querier, validate)
	inboundHttp.RegisterEventHttp(mux, cfg, db, querier, js, validate)
	inboundHttp.RegisterPurchaseHttp(mux, cfg, db, querier, cacheClient, js, validate)
	inboundHttp.RegisterTicketHttp(mux, cfg, querier, validate)
	inboundHttp.RegisterPortalHttp(mux, querier)
	inboundHttp.RegisterSiteHttp(mux, cfg, querier, validate)
	inboundHttp.RegisterCroquisHttp(mux, cfg, querier, validate)

	listingCron := &inboundCron.ListingCron{
		Cfg:     cfg,
		Cache:   cacheClient,
		Querier: querier,
	}

	err := listingCron.InitCapacityCache(ctx)
	if err != nil {
		log.Fatalln("unable to init capacity cache", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.GetInt("server.port")),
		Handler:           timeoutMiddleware(inboundHttp.CorsMiddleware(mux)),
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalln("unable to start server", err)
		}
	}()

	slog.Info("http server started")

	go func() {
		listingCron.Start(ctx)
	}()

	<-ctx.Done()

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutDown); err != nil {
		log.Fatalln("unable to shutdown server", err)
	}

	slog.Info("http server stopped")
}
