package api

import (
	"net/http"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

// CreateCrashHandler handles POST /crash.
func (h *HandlerProvider) CreateCrashHandler(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Crash.Create(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"gameId": g.ID.String(),
		"status": g.Status,
	})
}

type crashBetRequest struct {
	Amount string `json:"amount"`
}

// PlaceCrashBetHandler handles POST /crash/{gameId}/bets.
func (h *HandlerProvider) PlaceCrashBetHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	gameID, err := parseGameID(r, "gameId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req crashBetRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmountCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.svc.Crash.PlaceBet(r.Context(), userID, gameID, amount)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"betId":  b.ID,
		"gameId": gameID.String(),
		"amount": formatCents(b.Amount),
	})
}

// LaunchCrashHandler handles POST /crash/{gameId}/launch.
func (h *HandlerProvider) LaunchCrashHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r, "gameId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.Crash.Launch(r.Context(), gameID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"gameId": gameID.String(),
		"status": games.StatusFlying,
	})
}

type crashCashoutRequest struct {
	// Multiplier is a 2-decimal string, e.g. "2.35".
	Multiplier string `json:"multiplier"`
}

// CashoutCrashHandler handles POST /crash/{gameId}/cashout.
func (h *HandlerProvider) CashoutCrashHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	gameID, err := parseGameID(r, "gameId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req crashCashoutRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	multiplier, err := parseAmountCents(req.Multiplier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multiplier")
		return
	}

	err = h.svc.Crash.Cashout(r.Context(), userID, gameID, multiplier)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type crashBetView struct {
	UserID  int64  `json:"userId"`
	Amount  string `json:"amount"`
	Cashout string `json:"cashout,omitempty"`
	Payout  string `json:"payout"`
	Won     bool   `json:"won"`
}

func toCrashBetViews(bets []games.CrashBet) []crashBetView {
	out := make([]crashBetView, len(bets))
	for i, b := range bets {
		out[i] = crashBetView{
			UserID: b.UserID,
			Amount: formatCents(b.Amount),
			Payout: formatCents(b.Payout),
		}
		if b.Cashout != nil {
			out[i].Cashout = formatCents(*b.Cashout)
		}
		if b.Won != nil {
			out[i].Won = *b.Won
		}
	}

	return out
}

// ResolveCrashHandler handles POST /crash/{gameId}/resolve.
func (h *HandlerProvider) ResolveCrashHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r, "gameId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Crash.Resolve(r.Context(), gameID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gameId":     gameID.String(),
		"crashPoint": formatCents(res.CrashPoint),
		"bets":       toCrashBetViews(res.Bets),
	})
}
