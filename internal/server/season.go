package server

import (
	"net/http"
	"strconv"
	"time"
)

type createSeasonRequest struct {
	SeasonName  string `json:"season_name"`
	Description string `json:"description"`
	KingdomID   string `json:"kingdom_id"`
}

func (s *Server) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	var req createSeasonRequest
	if !s.decode(w, r, &req) {
		return
	}

	season, err := s.seasonSvc.Create(r.Context(), req.SeasonName, req.Description, req.KingdomID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, season)
}

func (s *Server) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.seasonSvc.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"count":   len(seasons),
		"seasons": seasons,
	})
}

func (s *Server) handleActiveSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonSvc.Active(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, season)
}

func (s *Server) handleGetSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonSvc.Get(r.Context(), r.PathValue("season"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, season)
}

func (s *Server) handleActivateSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonSvc.Activate(r.Context(), r.PathValue("season"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, season)
}

func (s *Server) handleCompleteSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonSvc.Complete(r.Context(), r.PathValue("season"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, season)
}

func (s *Server) handleArchiveSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonSvc.Archive(r.Context(), r.PathValue("season"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, season)
}

type seasonDatesRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (s *Server) handleUpdateSeasonDates(w http.ResponseWriter, r *http.Request) {
	var req seasonDatesRequest
	if !s.decode(w, r, &req) {
		return
	}

	season, err := s.seasonSvc.UpdateDates(r.Context(), r.PathValue("season"), req.StartDate, req.EndDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, season)
}

type createFightPeriodRequest struct {
	SeasonID    string     `json:"season_id"`
	FightNumber int        `json:"fight_number"`
	FightName   string     `json:"fight_name"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Description string     `json:"description"`
}

func (s *Server) handleCreateFightPeriod(w http.ResponseWriter, r *http.Request) {
	var req createFightPeriodRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SeasonID == "" {
		s.respondError(w, http.StatusBadRequest, "season_id is required")
		return
	}
	if req.StartTime.IsZero() {
		s.respondError(w, http.StatusBadRequest, "start_time is required")
		return
	}

	fp, err := s.fightPeriodSvc.Create(r.Context(), req.SeasonID, req.FightNumber,
		req.FightName, req.StartTime, req.EndTime, req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, fp)
}

func (s *Server) handleListFightPeriods(w http.ResponseWriter, r *http.Request) {
	seasonID := r.PathValue("season")

	periods, err := s.fightPeriodSvc.List(r.Context(), seasonID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"season_id":     seasonID,
		"count":         len(periods),
		"fight_periods": periods,
	})
}

// fightNumber parses the {number} path segment.
func (s *Server) fightNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "fight number must be an integer")
		return 0, false
	}
	return n, true
}

func (s *Server) handleGetFightPeriod(w http.ResponseWriter, r *http.Request) {
	n, ok := s.fightNumber(w, r)
	if !ok {
		return
	}

	fp, err := s.fightPeriodSvc.Get(r.Context(), r.PathValue("season"), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, fp)
}

type updateFightPeriodRequest struct {
	FightName   *string    `json:"fight_name"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Description *string    `json:"description"`
}

func (s *Server) handleUpdateFightPeriod(w http.ResponseWriter, r *http.Request) {
	n, ok := s.fightNumber(w, r)
	if !ok {
		return
	}

	var req updateFightPeriodRequest
	if !s.decode(w, r, &req) {
		return
	}

	fp, err := s.fightPeriodSvc.Update(r.Context(), r.PathValue("season"), n,
		req.FightName, req.StartTime, req.EndTime, req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, fp)
}

func (s *Server) handleEndFightPeriod(w http.ResponseWriter, r *http.Request) {
	n, ok := s.fightNumber(w, r)
	if !ok {
		return
	}

	fp, err := s.fightPeriodSvc.End(r.Context(), r.PathValue("season"), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, fp)
}

func (s *Server) handleDeleteFightPeriod(w http.ResponseWriter, r *http.Request) {
	n, ok := s.fightNumber(w, r)
	if !ok {
		return
	}

	if err := s.fightPeriodSvc.Delete(r.Context(), r.PathValue("season"), n); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "fight period deleted"})
}
