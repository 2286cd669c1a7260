package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roomfund/internal/storage"
)

// handleStartSession ensures the admin exists and applies the monthly rollover.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.household.StartSession(r.Context(), account, req.Owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b := NewResponse().
		JSON(map[string]any{
			"rolledOver": res.Value.RolledOver,
			"dashboard":  newDashboardView(res.Value.Dashboard),
		}).
		Notify(res.Notifications...)
	if res.Value.RolledOver {
		b.TriggerRefresh(string(storage.KindExpenses)).
			TriggerRefresh(string(storage.KindChores)).
			TriggerRefresh(string(storage.KindBudget))
	}
	b.Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dash, err := s.household.Dashboard(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newDashboardView(dash)).Write(w)
}

// handleReport serves the export as a JSON download. The body is the bare
// report, not the response envelope.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.household.Report(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.household.ReportFilename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.household.ClearData(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		JSON(map[string]int{"cleared": res.Value}).
		Notify(res.Notifications...).
		TriggerRefresh(string(storage.KindExpenses)).
		TriggerRefresh(string(storage.KindChores)).
		Write(w)
}
