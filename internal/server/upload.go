package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/domain"
	"kvk-tracker/internal/ingest"
)

// parseUploadFile reads the multipart "file" part and routes it to the CSV or
// Excel parser by extension.
func (s *Server) parseUploadFile(r *http.Request) ([]domain.PlayerRecord, string, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing file part: %w", err)
	}
	defer file.Close()

	players, err := s.parseByExtension(file, header)
	if err != nil {
		return nil, "", err
	}
	return players, header.Filename, nil
}

func (s *Server) parseByExtension(file multipart.File, header *multipart.FileHeader) ([]domain.PlayerRecord, error) {
	switch ext := strings.ToLower(filepath.Ext(header.Filename)); ext {
	case ".csv":
		return ingest.ParseCSV(file)
	case ".xlsx", ".xlsm":
		players, sheet, err := ingest.ParseExcel(file, s.cfg.KingdomID)
		if err != nil {
			return nil, err
		}
		s.logger.Info().
			Str("file_name", header.Filename).
			Str("sheet", sheet).
			Int("players", len(players)).
			Msg("excel sheet parsed")
		return players, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", ext)
	}
}

func (s *Server) handleUploadBaseline(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	players, fileName, err := s.parseUploadFile(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.uploadSvc.ProcessBaseline(r.Context(), seasonID, fileName, players)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleUploadCurrent(w http.ResponseWriter, r *http.Request) {
	seasonID, err := s.resolveSeason(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	players, fileName, err := s.parseUploadFile(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	description := r.FormValue("description")

	result, err := s.uploadSvc.ProcessCurrent(r.Context(), seasonID, fileName, description, players)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

// handleFinalKvKUpload takes the end-of-KvK workbook: classification, farm
// links, and verified deaths for the whole kingdom in one file.
func (s *Server) handleFinalKvKUpload(w http.ResponseWriter, r *http.Request) {
	seasonID := r.PathValue("season")

	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("missing file part: %v", err))
		return
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(header.Filename)); ext {
	case ".xlsx", ".xlsm":
	default:
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q, expected .xlsx", ext))
		return
	}

	rows, err := ingest.ParseFinalKvK(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.finalKvKSvc.Process(r.Context(), seasonID, header.Filename, rows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

type rebuildRequest struct {
	SeasonID         string `json:"season_id"`
	RecomputeHistory bool   `json:"recompute_history"`
}

func (s *Server) handleRebuildBaseline(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SeasonID == "" {
		s.respondError(w, http.StatusBadRequest, "season_id is required")
		return
	}

	result, err := s.uploadSvc.RebuildBaseline(r.Context(), req.SeasonID, req.RecomputeHistory)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	seasonID := r.PathValue("season")

	history, err := s.leaderboardSvc.GetHistory(r.Context(), seasonID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"season_id": seasonID,
		"uploads":   history,
	})
}

func (s *Server) handleDataStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.leaderboardSvc.GetDataStatus(r.Context(), r.PathValue("season"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, status)
}
