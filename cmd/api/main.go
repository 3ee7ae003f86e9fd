package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/callzzzz333/mm2-arena/internal/api"
	"github.com/callzzzz333/mm2-arena/internal/infra/logging"
	"github.com/callzzzz333/mm2-arena/internal/infra/pgutils"
	"github.com/callzzzz333/mm2-arena/internal/jobs"
	pginventory "github.com/callzzzz333/mm2-arena/internal/repos/inventory/postgres"
	pgitems "github.com/callzzzz333/mm2-arena/internal/repos/items/postgres"
	"github.com/callzzzz333/mm2-arena/internal/services/battles"
	"github.com/callzzzz333/mm2-arena/internal/services/blackjack"
	"github.com/callzzzz333/mm2-arena/internal/services/chamber"
	"github.com/callzzzz333/mm2-arena/internal/services/coinflip"
	"github.com/callzzzz333/mm2-arena/internal/services/crash"
	"github.com/callzzzz333/mm2-arena/internal/services/giveaways"
	ledgersvc "github.com/callzzzz333/mm2-arena/internal/services/ledger"
	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
	"github.com/callzzzz333/mm2-arena/internal/services/pricing"
	"github.com/callzzzz333/mm2-arena/internal/services/raffles"
	"github.com/callzzzz333/mm2-arena/internal/services/roulette"
	"github.com/callzzzz333/mm2-arena/internal/services/stakes"
	"github.com/callzzzz333/mm2-arena/pkg/envconf"
	"github.com/callzzzz333/mm2-arena/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	// --- Services ---
	src := outcome.Crypto()
	prices := pricing.NewCache(pgitems.New(db), cfg.Games.PriceCacheTTL)
	mover := stakes.NewMover(pginventory.New(db), prices)
	ledger := ledgersvc.New(db)

	svc := api.Services{
		Ledger:    ledger,
		Inventory: pginventory.New(db),
		Prices:    prices,
		Coinflip:  coinflip.New(db, ledger, mover, src, cfg.Games.CoinflipTolerancePct),
		Roulette:  roulette.New(db, ledger, src),
		Crash:     crash.New(db, ledger, src),
		Blackjack: blackjack.New(db, ledger, src),
		Battles:   battles.New(db, ledger, mover, prices, src),
		Chamber:   chamber.New(db, ledger, src, cfg.Games.ChamberCount),
		Giveaways: giveaways.New(db, ledger, src, cfg.Sweeper.GiveawayGrace),
		Raffles:   raffles.New(db, ledger, mover),
	}

	// --- Background sweeps ---
	sched, err := jobs.NewScheduler(cfg.Sweeper, jobs.Sweepers{
		Coinflip:  svc.Coinflip,
		Battles:   svc.Battles,
		Giveaways: svc.Giveaways,
		Crash:     svc.Crash,
	})
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Stop sweep scheduler")
		sched.Stop()

		return nil
	})

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, svc)

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
