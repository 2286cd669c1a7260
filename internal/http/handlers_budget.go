package http

import (
	"net/http"

	"roomfund/internal/storage"
)

// handleGetBudget returns a null data member when no budget is set.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.household.Budget(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newBudgetView(b)).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(string(req.Amount), true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.household.SetBudget(r.Context(), account, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		JSON(newBudgetView(&res.Value)).
		Notify(res.Notifications...).
		TriggerRefresh(string(storage.KindBudget)).
		Write(w)
}

func (s *Server) handleResetBudget(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.household.ResetBudget(r.Context(), account); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		TriggerRefresh(string(storage.KindBudget)).
		Write(w)
}
