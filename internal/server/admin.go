package server

import (
	"net/http"

	"kvk-tracker/internal/domain"
)

type classifyRequest struct {
	SeasonID     string `json:"season_id"`
	GovernorID   string `json:"governor_id"`
	AccountType  string `json:"account_type"`
	IsDeadWeight bool   `json:"is_dead_weight"`
	Notes        string `json:"notes"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SeasonID == "" || req.GovernorID == "" {
		s.respondError(w, http.StatusBadRequest, "season_id and governor_id are required")
		return
	}

	err := s.classificationSvc.Classify(r.Context(), req.SeasonID, req.GovernorID,
		domain.AccountType(req.AccountType), req.IsDeadWeight, req.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"governor_id":  req.GovernorID,
		"account_type": req.AccountType,
		"message":      "player classified",
	})
}

type linkFarmRequest struct {
	SeasonID string `json:"season_id"`
	FarmID   string `json:"farm_id"`
	MainID   string `json:"main_id"`
}

func (s *Server) handleLinkFarm(w http.ResponseWriter, r *http.Request) {
	var req linkFarmRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SeasonID == "" || req.FarmID == "" || req.MainID == "" {
		s.respondError(w, http.StatusBadRequest, "season_id, farm_id and main_id are required")
		return
	}

	if err := s.classificationSvc.Link(r.Context(), req.SeasonID, req.FarmID, req.MainID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"farm_id": req.FarmID,
		"main_id": req.MainID,
		"message": "farm linked",
	})
}

func (s *Server) handleUnlinkFarm(w http.ResponseWriter, r *http.Request) {
	var req linkFarmRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SeasonID == "" || req.FarmID == "" || req.MainID == "" {
		s.respondError(w, http.StatusBadRequest, "season_id, farm_id and main_id are required")
		return
	}

	if err := s.classificationSvc.Unlink(r.Context(), req.SeasonID, req.FarmID, req.MainID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"farm_id": req.FarmID,
		"main_id": req.MainID,
		"message": "farm unlinked",
	})
}

func (s *Server) handleGetClassification(w http.ResponseWriter, r *http.Request) {
	player, err := s.classificationSvc.GetClassification(r.Context(), r.PathValue("season"), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, player)
}

func (s *Server) handleClassificationSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.classificationSvc.Summary(r.Context(), r.PathValue("season"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, summary)
}

type verifiedDeathsRequest struct {
	SeasonID   string `json:"season_id"`
	GovernorID string `json:"governor_id"`
	T4Deaths   int64  `json:"t4_deaths"`
	T5Deaths   int64  `json:"t5_deaths"`
	Verified   bool   `json:"verified"`
	Notes      string `json:"notes"`
}

func (s *Server) handleSetVerifiedDeaths(w http.ResponseWriter, r *http.Request) {
	var req verifiedDeathsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SeasonID == "" || req.GovernorID == "" {
		s.respondError(w, http.StatusBadRequest, "season_id and governor_id are required")
		return
	}

	err := s.contributionSvc.SetVerifiedDeaths(r.Context(), req.SeasonID, req.GovernorID,
		req.T4Deaths, req.T5Deaths, req.Verified, req.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"governor_id": req.GovernorID,
		"message":     "verified deaths recorded",
	})
}

func (s *Server) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.contributionSvc.Verification(r.Context(), r.PathValue("season"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, status)
}
