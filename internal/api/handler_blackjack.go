package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
)

type cardView struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

func toCardViews(hand []outcome.Card) []cardView {
	out := make([]cardView, len(hand))
	for i, c := range hand {
		out[i] = cardView{Rank: c.Rank, Suit: c.Suit}
	}

	return out
}

type blackjackPlayerView struct {
	UserID int64      `json:"userId"`
	Seat   int        `json:"seat"`
	Hand   []cardView `json:"hand"`
	Score  int        `json:"score"`
	Status string     `json:"status"`
	Bet    string     `json:"bet"`
	Payout string     `json:"payout"`
}

func toBlackjackPlayerViews(players []games.BlackjackPlayer) []blackjackPlayerView {
	out := make([]blackjackPlayerView, len(players))
	for i, p := range players {
		out[i] = blackjackPlayerView{
			UserID: p.UserID,
			Seat:   p.Seat,
			Hand:   toCardViews(p.Hand),
			Score:  outcome.HandScore(p.Hand),
			Status: p.Status,
			Bet:    formatCents(p.Bet),
			Payout: formatCents(p.Payout),
		}
	}

	return out
}

func toBlackjackView(t *games.BlackjackTable, players []games.BlackjackPlayer) map[string]any {
	return map[string]any{
		"tableId":     t.ID.String(),
		"status":      t.Status,
		"dealerHand":  toCardViews(t.DealerHand),
		"dealerScore": outcome.HandScore(t.DealerHand),
		"turnSeat":    t.TurnSeat,
		"players":     toBlackjackPlayerViews(players),
	}
}

// CreateBlackjackHandler handles POST /blackjack.
func (h *HandlerProvider) CreateBlackjackHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Blackjack.Create(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"tableId": t.ID.String(),
		"status":  t.Status,
	})
}

type joinBlackjackRequest struct {
	Bet string `json:"bet"`
}

// JoinBlackjackHandler handles POST /blackjack/{tableId}/join.
func (h *HandlerProvider) JoinBlackjackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	tableID, err := parseGameID(r, "tableId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req joinBlackjackRequest

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

	p, err := h.svc.Blackjack.Join(r.Context(), userID, tableID, bet)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"tableId": tableID.String(),
		"seat":    p.Seat,
		"bet":     formatCents(p.Bet),
	})
}

// DealBlackjackHandler handles POST /blackjack/{tableId}/deal.
func (h *HandlerProvider) DealBlackjackHandler(w http.ResponseWriter, r *http.Request) {
	tableID, err := parseGameID(r, "tableId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, players, err := h.svc.Blackjack.Deal(r.Context(), tableID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBlackjackView(t, players))
}

// HitBlackjackHandler handles POST /blackjack/{tableId}/hit.
func (h *HandlerProvider) HitBlackjackHandler(w http.ResponseWriter, r *http.Request) {
	h.playerAction(w, r, h.svc.Blackjack.Hit)
}

// StandBlackjackHandler handles POST /blackjack/{tableId}/stand.
func (h *HandlerProvider) StandBlackjackHandler(w http.ResponseWriter, r *http.Request) {
	h.playerAction(w, r, h.svc.Blackjack.Stand)
}

func (h *HandlerProvider) playerAction(w http.ResponseWriter, r *http.Request, act func(ctx context.Context, userID int64, tableID uuid.UUID) (*games.BlackjackPlayer, error)) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	tableID, err := parseGameID(r, "tableId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := act(r.Context(), userID, tableID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tableId": tableID.String(),
		"hand":    toCardViews(p.Hand),
		"score":   outcome.HandScore(p.Hand),
		"status":  p.Status,
	})
}

// GetBlackjackHandler handles GET /blackjack/{tableId}.
func (h *HandlerProvider) GetBlackjackHandler(w http.ResponseWriter, r *http.Request) {
	tableID, err := parseGameID(r, "tableId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, players, err := h.svc.Blackjack.Get(r.Context(), tableID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBlackjackView(t, players))
}
