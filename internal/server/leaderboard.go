package server

import (
	"net/http"
	"strconv"
)

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	board, err := s.leaderboardSvc.Get(r.Context(), seasonID, q.Get("sort_by"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, board)
}

func (s *Server) handleCombinedLeaderboard(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows, err := s.classificationSvc.Consolidated(r.Context(), seasonID, r.URL.Query().Get("sort_by"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"season_id":    seasonID,
		"player_count": len(rows),
		"leaderboard":  rows,
	})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	player, err := s.leaderboardSvc.GetPlayer(r.Context(), seasonID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, player)
}

func (s *Server) handlePlayerTimeline(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	timeline, err := s.leaderboardSvc.GetTimeline(r.Context(), seasonID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, timeline)
}

func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	board, err := s.leaderboardSvc.Get(r.Context(), seasonID, "", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"season_id":        seasonID,
		"is_baseline_only": board.IsBaselineOnly,
		"summary":          board.Summary,
	})
}

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	scores, err := s.contributionSvc.Scores(r.Context(), seasonID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"season_id":    seasonID,
		"player_count": len(scores),
		"scores":       scores,
	})
}

func (s *Server) handlePlayerContribution(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	score, err := s.contributionSvc.PlayerScore(r.Context(), seasonID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, score)
}
