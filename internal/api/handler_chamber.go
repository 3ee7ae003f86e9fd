package api

import (
	"net/http"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

func toChamberView(g *games.ChamberGame) map[string]any {
	return map[string]any{
		"gameId":       g.ID.String(),
		"status":       g.Status,
		"bet":          formatCents(g.Bet),
		"chambersLeft": g.ChambersLeft,
		"multiplier":   formatCents(g.Multiplier),
		"payout":       formatCents(g.Payout),
	}
}

type createChamberRequest struct {
	Bet string `json:"bet"`
}

// CreateChamberHandler handles POST /chamber.
func (h *HandlerProvider) CreateChamberHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createChamberRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bet, err := parseAmountCents(req.Bet)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, err := h.svc.Chamber.Create(r.Context(), userID, bet)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toChamberView(g))
}

// PullChamberHandler handles POST /chamber/{gameId}/pull.
func (h *HandlerProvider) PullChamberHandler(w http.ResponseWriter, r *http.Request) {
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

	g, err := h.svc.Chamber.Pull(r.Context(), userID, gameID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toChamberView(g))
}

// CashoutChamberHandler handles POST /chamber/{gameId}/cashout.
func (h *HandlerProvider) CashoutChamberHandler(w http.ResponseWriter, r *http.Request) {
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

	g, err := h.svc.Chamber.Cashout(r.Context(), userID, gameID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toChamberView(g))
}
