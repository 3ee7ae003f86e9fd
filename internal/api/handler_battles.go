package api

import (
	"net/http"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

type createBattleRequest struct {
	MaxPlayers    int    `json:"maxPlayers"`
	Rounds        int    `json:"rounds"`
	CasesPerRound int    `json:"casesPerRound"`
	EntryCost     string `json:"entryCost"`
}

type battleParticipantView struct {
	UserID     int64            `json:"userId"`
	Position   int              `json:"position"`
	TotalValue string           `json:"totalValue"`
	Drops      []stakedItemView `json:"drops"`
}

func toBattleParticipantViews(participants []games.CaseBattleParticipant) []battleParticipantView {
	out := make([]battleParticipantView, len(participants))
	for i, p := range participants {
		out[i] = battleParticipantView{
			UserID:     p.UserID,
			Position:   p.Position,
			TotalValue: formatCents(p.TotalValue),
			Drops:      toStakeView(p.Drops),
		}
	}

	return out
}

func toBattleView(b *games.CaseBattle) map[string]any {
	v := map[string]any{
		"battleId":      b.ID.String(),
		"status":        b.Status,
		"maxPlayers":    b.MaxPlayers,
		"rounds":        b.Rounds,
		"casesPerRound": b.CasesPerRound,
		"entryCost":     formatCents(b.EntryCost),
		"currentRound":  b.CurrentRound,
	}
	if b.WinnerID != nil {
		v["winnerId"] = *b.WinnerID
	}

	return v
}

// CreateBattleHandler handles POST /battles.
func (h *HandlerProvider) CreateBattleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createBattleRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entryCost, err := parseAmountCents(req.EntryCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.svc.Battles.Create(r.Context(), userID, req.MaxPlayers, req.Rounds, req.CasesPerRound, entryCost)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBattleView(b))
}

// JoinBattleHandler handles POST /battles/{battleId}/join.
func (h *HandlerProvider) JoinBattleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	battleID, err := parseGameID(r, "battleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.svc.Battles.Join(r.Context(), userID, battleID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBattleView(b))
}

// PlayBattleRoundHandler handles POST /battles/{battleId}/round.
func (h *HandlerProvider) PlayBattleRoundHandler(w http.ResponseWriter, r *http.Request) {
	battleID, err := parseGameID(r, "battleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Battles.PlayRound(r.Context(), battleID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := map[string]any{
		"battleId":     battleID.String(),
		"round":        res.Round,
		"final":        res.Final,
		"participants": toBattleParticipantViews(res.Participants),
	}
	if res.Final {
		out["winnerId"] = res.WinnerID
	}

	writeJSON(w, http.StatusOK, out)
}

// GetBattleHandler handles GET /battles/{battleId}.
func (h *HandlerProvider) GetBattleHandler(w http.ResponseWriter, r *http.Request) {
	battleID, err := parseGameID(r, "battleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, participants, err := h.svc.Battles.Get(r.Context(), battleID)
	if err != nil {
		respondError(w, err)
		return
	}

	v := toBattleView(b)
	v["participants"] = toBattleParticipantViews(participants)

	writeJSON(w, http.StatusOK, v)
}
