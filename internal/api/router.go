package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter constructs the router with all API endpoints registered.
func NewRouter(svc Services) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/user/{userId}", func(r chi.Router) {
		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/inventory", h.GetInventoryHandler)
		r.Get("/history", h.GetHistoryHandler)
		r.Post("/deposit", h.DepositHandler)
	})

	r.Route("/coinflip", func(r chi.Router) {
		r.Post("/", h.CreateCoinflipHandler)
		r.Get("/{gameId}", h.GetCoinflipHandler)
		r.Post("/{gameId}/join", h.JoinCoinflipHandler)
	})

	r.Route("/roulette", func(r chi.Router) {
		r.Post("/", h.CreateRouletteHandler)
		r.Post("/{gameId}/bets", h.PlaceRouletteBetHandler)
		r.Post("/{gameId}/spin", h.SpinRouletteHandler)
	})

	r.Route("/crash", func(r chi.Router) {
		r.Post("/", h.CreateCrashHandler)
		r.Post("/{gameId}/bets", h.PlaceCrashBetHandler)
		r.Post("/{gameId}/launch", h.LaunchCrashHandler)
		r.Post("/{gameId}/cashout", h.CashoutCrashHandler)
		r.Post("/{gameId}/resolve", h.ResolveCrashHandler)
	})

	r.Route("/blackjack", func(r chi.Router) {
		r.Post("/", h.CreateBlackjackHandler)
		r.Get("/{tableId}", h.GetBlackjackHandler)
		r.Post("/{tableId}/join", h.JoinBlackjackHandler)
		r.Post("/{tableId}/deal", h.DealBlackjackHandler)
		r.Post("/{tableId}/hit", h.HitBlackjackHandler)
		r.Post("/{tableId}/stand", h.StandBlackjackHandler)
	})

	r.Route("/battles", func(r chi.Router) {
		r.Post("/", h.CreateBattleHandler)
		r.Get("/{battleId}", h.GetBattleHandler)
		r.Post("/{battleId}/join", h.JoinBattleHandler)
		r.Post("/{battleId}/round", h.PlayBattleRoundHandler)
	})

	r.Route("/chamber", func(r chi.Router) {
		r.Post("/", h.CreateChamberHandler)
		r.Post("/{gameId}/pull", h.PullChamberHandler)
		r.Post("/{gameId}/cashout", h.CashoutChamberHandler)
	})

	r.Route("/giveaways", func(r chi.Router) {
		r.Post("/", h.CreateGiveawayHandler)
		r.Get("/{giveawayId}", h.GetGiveawayHandler)
		r.Post("/{giveawayId}/join", h.JoinGiveawayHandler)
	})

	r.Route("/raffles", func(r chi.Router) {
		r.Get("/{raffleId}", h.GetRaffleHandler)
		r.Post("/{raffleId}/exchange", h.ExchangeRaffleHandler)
	})

	return r
}
