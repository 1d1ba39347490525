// Package server exposes the tracker over plain JSON HTTP. Handlers are thin:
// parse input, resolve the season, call a service, map the error.
package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"kvk-tracker/internal/cache"
	"kvk-tracker/internal/config"
	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/repository"
	"kvk-tracker/internal/service"

	"github.com/rs/zerolog"
)

type Server struct {
	uploadSvc         *service.UploadService
	leaderboardSvc    *service.LeaderboardService
	classificationSvc *service.ClassificationService
	contributionSvc   *service.ContributionService
	seasonSvc         *service.SeasonService
	fightPeriodSvc    *service.FightPeriodService
	finalKvKSvc       *service.FinalKvKService

	cfg    *config.Config
	db     *sql.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

func NewServer(
	uploadSvc *service.UploadService,
	leaderboardSvc *service.LeaderboardService,
	classificationSvc *service.ClassificationService,
	contributionSvc *service.ContributionService,
	seasonSvc *service.SeasonService,
	fightPeriodSvc *service.FightPeriodService,
	finalKvKSvc *service.FinalKvKService,
	cfg *config.Config,
	db *sql.DB,
	c *cache.Cache,
	logger zerolog.Logger,
) *Server {
	return &Server{
		uploadSvc:         uploadSvc,
		leaderboardSvc:    leaderboardSvc,
		classificationSvc: classificationSvc,
		contributionSvc:   contributionSvc,
		seasonSvc:         seasonSvc,
		fightPeriodSvc:    fightPeriodSvc,
		finalKvKSvc:       finalKvKSvc,
		cfg:               cfg,
		db:                db,
		cache:             c,
		logger:            logger,
	}
}

// Routes builds the full route table. Method patterns keep the mux strict:
// a wrong verb is a 405 without any handler code.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/leaderboard/combined", s.handleCombinedLeaderboard)
	mux.HandleFunc("GET /api/player/{id}", s.handlePlayer)
	mux.HandleFunc("GET /api/player/{id}/timeline", s.handlePlayerTimeline)
	mux.HandleFunc("GET /api/stats/summary", s.handleStatsSummary)
	mux.HandleFunc("GET /api/contributions", s.handleContributions)
	mux.HandleFunc("GET /api/contributions/{id}", s.handlePlayerContribution)

	mux.HandleFunc("POST /admin/upload/baseline", s.handleUploadBaseline)
	mux.HandleFunc("POST /admin/upload/current", s.handleUploadCurrent)
	mux.HandleFunc("POST /admin/rebuild-baseline", s.handleRebuildBaseline)
	mux.HandleFunc("GET /admin/history/{season}", s.handleHistory)
	mux.HandleFunc("GET /admin/data-status/{season}", s.handleDataStatus)

	mux.HandleFunc("POST /admin/players/classify", s.handleClassify)
	mux.HandleFunc("POST /admin/players/link-farm", s.handleLinkFarm)
	mux.HandleFunc("POST /admin/players/unlink-farm", s.handleUnlinkFarm)
	mux.HandleFunc("GET /admin/players/classification/{season}/{id}", s.handleGetClassification)
	mux.HandleFunc("GET /admin/players/summary/{season}", s.handleClassificationSummary)

	mux.HandleFunc("POST /admin/final-kvk/upload/{season}", s.handleFinalKvKUpload)

	mux.HandleFunc("POST /admin/verified-deaths", s.handleSetVerifiedDeaths)
	mux.HandleFunc("GET /admin/verified-deaths/status/{season}", s.handleVerificationStatus)

	mux.HandleFunc("POST /admin/seasons", s.handleCreateSeason)
	mux.HandleFunc("GET /admin/seasons", s.handleListSeasons)
	mux.HandleFunc("GET /admin/seasons/active", s.handleActiveSeason)
	mux.HandleFunc("GET /admin/seasons/{season}", s.handleGetSeason)
	mux.HandleFunc("POST /admin/seasons/{season}/activate", s.handleActivateSeason)
	mux.HandleFunc("POST /admin/seasons/{season}/complete", s.handleCompleteSeason)
	mux.HandleFunc("POST /admin/seasons/{season}/archive", s.handleArchiveSeason)
	mux.HandleFunc("PUT /admin/seasons/{season}/dates", s.handleUpdateSeasonDates)

	mux.HandleFunc("POST /admin/fight-periods", s.handleCreateFightPeriod)
	mux.HandleFunc("GET /admin/fight-periods/{season}", s.handleListFightPeriods)
	mux.HandleFunc("GET /admin/fight-periods/{season}/{number}", s.handleGetFightPeriod)
	mux.HandleFunc("PUT /admin/fight-periods/{season}/{number}", s.handleUpdateFightPeriod)
	mux.HandleFunc("POST /admin/fight-periods/{season}/{number}/end", s.handleEndFightPeriod)
	mux.HandleFunc("DELETE /admin/fight-periods/{season}/{number}", s.handleDeleteFightPeriod)

	return mux
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok", Cache: "disabled"}

	if err := s.db.PingContext(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if s.cache.Enabled() {
		resp.Cache = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.respond(w, code, resp)
}

// resolveSeason picks the season from the query string, falling back to the
// active season when none is given.
func (s *Server) resolveSeason(r *http.Request) (string, error) {
	if id := r.URL.Query().Get("season"); id != "" {
		return id, nil
	}
	season, err := s.seasonSvc.Active(r.Context())
	if err != nil {
		return "", err
	}
	return season.SeasonID, nil
}

func (s *Server) respond(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, code int, msg string) {
	s.respond(w, code, errorResponse{Error: msg})
}

// fail maps service errors onto status codes: not-found family to 404,
// rejected operations to 400, everything else to 500 with the detail kept in
// the log rather than the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrSeasonNotFound),
		errors.Is(err, service.ErrFightPeriodNotFound),
		errors.Is(err, service.ErrNoData),
		errors.Is(err, service.ErrNoActiveSeason),
		errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrBaselineRequired),
		errors.Is(err, service.ErrSeasonArchived),
		errors.Is(err, service.ErrClassificationConflict),
		errors.Is(err, service.ErrFightPeriodConflict),
		errors.Is(err, service.ErrSeasonState):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
