package http

import (
	"net/http"

	"roomfund/internal/services"
	"roomfund/internal/storage"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.household.ListExpenses(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newExpenseViews(expenses)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(string(req.Amount), false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.household.AddExpense(r.Context(), account, services.ExpenseInput{
		Amount:      amount,
		Description: req.Description,
		SpentBy:     req.SpentBy,
		Category:    req.Category,
		Date:        optionalDate(req.Date),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(newExpenseView(res.Value)).
		Notify(res.Notifications...).
		TriggerRefresh(string(storage.KindExpenses)).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.household.DeleteExpense(r.Context(), account, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		TriggerRefresh(string(storage.KindExpenses)).
		Write(w)
}
