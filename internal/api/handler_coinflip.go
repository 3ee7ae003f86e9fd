package api

import (
	"net/http"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

type createCoinflipRequest struct {
	Side  string      `json:"side"`
	Items []stakeLine `json:"items"`
}

type coinflipView struct {
	GameID      string           `json:"gameId"`
	Status      string           `json:"status"`
	CreatorID   int64            `json:"creatorId"`
	CreatorSide string           `json:"creatorSide"`
	Stake       []stakedItemView `json:"stake"`
	StakeValue  string           `json:"stakeValue"`
	JoinerID    *int64           `json:"joinerId,omitempty"`
	ResultSide  string           `json:"resultSide,omitempty"`
	WinnerID    *int64           `json:"winnerId,omitempty"`
}

func toCoinflipView(g *games.CoinflipGame) coinflipView {
	v := coinflipView{
		GameID:      g.ID.String(),
		Status:      g.Status,
		CreatorID:   g.CreatorID,
		CreatorSide: g.CreatorSide,
		Stake:       toStakeView(g.CreatorStake),
		StakeValue:  formatCents(g.StakeValue),
		JoinerID:    g.JoinerID,
		WinnerID:    g.WinnerID,
	}
	if g.ResultSide != nil {
		v.ResultSide = *g.ResultSide
	}

	return v
}

// CreateCoinflipHandler handles POST /coinflip.
func (h *HandlerProvider) CreateCoinflipHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createCoinflipRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, err := h.svc.Coinflip.Create(r.Context(), userID, req.Side, toLines(req.Items))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCoinflipView(g))
}

type joinCoinflipRequest struct {
	Items []stakeLine `json:"items"`
}

// JoinCoinflipHandler handles POST /coinflip/{gameId}/join.
func (h *HandlerProvider) JoinCoinflipHandler(w http.ResponseWriter, r *http.Request) {
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

	var req joinCoinflipRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Coinflip.Join(r.Context(), userID, gameID, toLines(req.Items))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCoinflipView(res.Game))
}

// GetCoinflipHandler handles GET /coinflip/{gameId}.
func (h *HandlerProvider) GetCoinflipHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r, "gameId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, err := h.svc.Coinflip.Get(r.Context(), gameID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCoinflipView(g))
}
