package http

import (
	"net/http"

	"roomfund/internal/services"
	"roomfund/internal/storage"
)

func (s *Server) handleListChores(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	chores, err := s.household.ListChores(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newChoreViews(chores)).Write(w)
}

func (s *Server) handleCreateChore(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req choreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.household.AddChore(r.Context(), account, services.ChoreInput{
		Title:      req.Title,
		AssignedTo: req.AssignedTo,
		DueDate:    optionalDate(req.DueDate),
		Emoji:      req.Emoji,
		Points:     req.Points,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(newChoreView(res.Value)).
		TriggerRefresh(string(storage.KindChores)).
		Write(w)
}

func (s *Server) handleCompleteChore(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.household.CompleteChore(r.Context(), account, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		JSON(newChoreView(res.Value)).
		TriggerRefresh(string(storage.KindChores)).
		Write(w)
}

func (s *Server) handleDeleteChore(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.household.DeleteChore(r.Context(), account, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		TriggerRefresh(string(storage.KindChores)).
		Write(w)
}
