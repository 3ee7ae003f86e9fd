package api

import (
	"net/http"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

// CreateRouletteHandler handles POST /roulette.
func (h *HandlerProvider) CreateRouletteHandler(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Roulette.Create(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"gameId": g.ID.String(),
		"status": g.Status,
	})
}

type rouletteBetRequest struct {
	Color  string `json:"color"`
	Amount string `json:"amount"`
}

// PlaceRouletteBetHandler handles POST /roulette/{gameId}/bets.
func (h *HandlerProvider) PlaceRouletteBetHandler(w http.ResponseWriter, r *http.Request) {
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

	var req rouletteBetRequest

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

	b, err := h.svc.Roulette.PlaceBet(r.Context(), userID, gameID, req.Color, amount)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"betId":  b.ID,
		"gameId": gameID.String(),
		"color":  b.Color,
		"amount": formatCents(b.Amount),
	})
}

type rouletteBetView struct {
	UserID int64  `json:"userId"`
	Color  string `json:"color"`
	Amount string `json:"amount"`
	Payout string `json:"payout"`
	Won    bool   `json:"won"`
}

func toRouletteBetViews(bets []games.RouletteBet) []rouletteBetView {
	out := make([]rouletteBetView, len(bets))
	for i, b := range bets {
		out[i] = rouletteBetView{
			UserID: b.UserID,
			Color:  b.Color,
			Amount: formatCents(b.Amount),
			Payout: formatCents(b.Payout),
		}
		if b.Won != nil {
			out[i].Won = *b.Won
		}
	}

	return out
}

// SpinRouletteHandler handles POST /roulette/{gameId}/spin.
func (h *HandlerProvider) SpinRouletteHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r, "gameId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Roulette.Spin(r.Context(), gameID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gameId": gameID.String(),
		"slot":   res.Slot,
		"color":  res.Color,
		"bets":   toRouletteBetViews(res.Bets),
	})
}
