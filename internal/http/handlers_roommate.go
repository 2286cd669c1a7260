package http

import (
	"net/http"

	"roomfund/internal/services"
	"roomfund/internal/storage"
)

func (s *Server) handleListRoommates(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	roommates, err := s.household.ListRoommates(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newRoommateViews(roommates)).Write(w)
}

func (s *Server) handleCreateRoommate(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req roommateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.household.AddRoommate(r.Context(), account, services.RoommateInput{
		Name:     req.Name,
		Avatar:   req.Avatar,
		Initials: req.Initials,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(newRoommateView(res.Value)).
		TriggerRefresh(string(storage.KindRoommates)).
		Write(w)
}

func (s *Server) handleDeleteRoommate(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.household.RemoveRoommate(r.Context(), account, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		TriggerRefresh(string(storage.KindRoommates)).
		Write(w)
}
