package api

import (
	"net/http"
	"time"
)

type createGiveawayRequest struct {
	Prize  string `json:"prize"`
	EndsAt string `json:"endsAt"`
}

// CreateGiveawayHandler handles POST /giveaways.
func (h *HandlerProvider) CreateGiveawayHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createGiveawayRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prize, err := parseAmountCents(req.Prize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "endsAt must be RFC3339")
		return
	}

	g, err := h.svc.Giveaways.Create(r.Context(), userID, prize, endsAt)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"giveawayId": g.ID.String(),
		"status":     g.Status,
		"prize":      formatCents(g.PrizeAmount),
		"endsAt":     g.EndsAt.UTC().Format(time.RFC3339),
	})
}

// JoinGiveawayHandler handles POST /giveaways/{giveawayId}/join. The
// request carries no body; entries always weigh one ticket.
func (h *HandlerProvider) JoinGiveawayHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	giveawayID, err := parseGameID(r, "giveawayId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.Giveaways.Join(r.Context(), userID, giveawayID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetGiveawayHandler handles GET /giveaways/{giveawayId}.
func (h *HandlerProvider) GetGiveawayHandler(w http.ResponseWriter, r *http.Request) {
	giveawayID, err := parseGameID(r, "giveawayId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, err := h.svc.Giveaways.Get(r.Context(), giveawayID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := map[string]any{
		"giveawayId": g.ID.String(),
		"creatorId":  g.CreatorID,
		"status":     g.Status,
		"prize":      formatCents(g.PrizeAmount),
		"endsAt":     g.EndsAt.UTC().Format(time.RFC3339),
	}
	if g.WinnerID != nil {
		out["winnerId"] = *g.WinnerID
	}

	writeJSON(w, http.StatusOK, out)
}
