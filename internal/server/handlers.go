package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opencarbon/carbonfocus/internal/audit"
	"github.com/opencarbon/carbonfocus/internal/auth"
	"github.com/opencarbon/carbonfocus/internal/credit"
	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/importer"
	"github.com/opencarbon/carbonfocus/internal/logging"
	"github.com/opencarbon/carbonfocus/internal/report"
	"github.com/opencarbon/carbonfocus/internal/schema"
	"github.com/opencarbon/carbonfocus/internal/store"
)

const maxImportSize = 16 << 20 // 16 MiB

// -------- Auth --------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, found, err := s.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "user lookup failed")
		return
	}
	if !found || !user.IsActive || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, tokenHash := auth.NewToken()
	expiresAt := time.Now().UTC().Add(auth.TokenTTL)
	if err := s.store.CreateSession(r.Context(), tokenHash, user.Username, expiresAt); err != nil {
		writeError(w, http.StatusInternalServerError, "session creation failed")
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Info().Str("username", user.Username).Msg("login")
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"roles":      user.Roles,
		"expires_at": expiresAt,
	})
}

// -------- Emission factors --------

func (s *Server) handleListEFs(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListEmissionFactors(r.Context(), r.URL.Query().Get("q"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list emission factors failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetEF(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	record, found, err := s.store.EmissionFactorRecordByKey(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "emission factor lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("emission factor %q not found", key))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleUpsertEF(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if err := schema.ValidateEmissionFactor(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var record store.EmissionFactorRecord
	if err := json.Unmarshal(body, &record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid emission factor payload")
		return
	}
	if err := s.store.UpsertEmissionFactor(r.Context(), &record); err != nil {
		writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": record.Key})
}

func (s *Server) handleImportEFs(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, importer.ImportEmissionFactors)
}

func (s *Server) handleImportActivities(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, importer.ImportActivities)
}

func (s *Server) handleImport(
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, st *store.Store, reader io.Reader) (int, error),
) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart file field \"file\" required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "only CSV files are supported")
		return
	}

	count, err := run(r.Context(), s.store, io.LimitReader(file, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "imported": count})
}

// -------- Activities --------

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListActivities(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list activities failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if err := schema.ValidateActivity(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var activity engine.Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity payload")
		return
	}
	if activity.Scope == "" {
		activity.Scope = "Scope3"
	}

	id, err := s.store.CreateActivity(r.Context(), &activity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create activity failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	existed, err := s.store.DeleteActivity(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete activity failed")
		return
	}
	if !existed {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// -------- Calculation runs --------

func (s *Server) handleCalcRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunType     string  `json:"run_type"`
		ActivityIDs []int64 `json:"activity_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.ActivityIDs) == 0 {
		writeError(w, http.StatusBadRequest, "activity_ids required")
		return
	}
	if req.RunType == "" {
		req.RunType = "CFO"
	}

	result, err := engine.ComputeRun(r.Context(), s.store, req.ActivityIDs, req.RunType)
	if err != nil {
		writeError(w, engineErrorStatus(err), err.Error())
		return
	}

	record, err := s.store.SaveRun(r.Context(), result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "persist run failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"run_id":       record.ID,
		"report_id":    record.ReportID,
		"run_type":     result.RunType,
		"total_kgco2e": result.TotalKgCO2e,
		"total_tco2e":  result.TotalTCO2e,
		"details":      result.Details,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}

	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, map[string]any{
			"id":          run.ID,
			"report_id":   run.ReportID,
			"run_type":    run.RunType,
			"total_tco2e": run.TotalTCO2e,
			"created_at":  run.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// -------- Credit projects --------

func (s *Server) handleListCreditProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCreditProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list credit projects failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpsertCreditProject(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if err := schema.ValidateCreditProject(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var project store.CreditProject
	if err := json.Unmarshal(body, &project); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credit project payload")
		return
	}
	if err := s.store.UpsertCreditProject(r.Context(), &project); err != nil {
		writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "project_code": project.ProjectCode})
}

func (s *Server) handleCreditCalc(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectCode string `json:"project_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectCode == "" {
		writeError(w, http.StatusBadRequest, "project_code required")
		return
	}

	project, found, err := s.store.CreditProjectByCode(r.Context(), req.ProjectCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "project lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("credit project %q not found", req.ProjectCode))
		return
	}

	trace, err := credit.Calculate(&credit.Project{
		ProjectCode:   project.ProjectCode,
		Name:          project.Name,
		Methodology:   project.Methodology,
		BaselineTCO2e: project.BaselineTCO2e,
		ProjectTCO2e:  project.ProjectTCO2e,
		LeakageTCO2e:  project.LeakageTCO2e,
		BufferPct:     project.BufferPct,
		Vintage:       project.Vintage,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	record, err := s.store.SaveRunRecord(r.Context(), "CREDIT",
		trace.NetTCO2e*engine.KgPerTonne, trace.NetTCO2e,
		map[string]any{"credit_trace": trace})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "persist run failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"run_id": record.ID,
		"trace":  trace,
	})
}

// -------- Audit and reports --------

func (s *Server) handleAuditRun(w http.ResponseWriter, r *http.Request) {
	record, ok := s.runFromPath(w, r)
	if !ok {
		return
	}

	reportOut, err := audit.VerifyRun(r.Context(), s.store, record)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reportOut)
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	record, ok := s.runFromPath(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=run_%d.csv", record.ID))
	if err := report.ExportCSV(w, record); err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("csv export failed")
	}
}

func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	record, ok := s.runFromPath(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=run_%d.json", record.ID))
	if err := report.ExportJSON(w, record); err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("json export failed")
	}
}

func (s *Server) runFromPath(w http.ResponseWriter, r *http.Request) (*store.RunRecord, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return nil, false
	}

	record, found, err := s.store.RunByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "run lookup failed")
		return nil, false
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %d not found", id))
		return nil, false
	}
	return record, true
}

// -------- Dashboard --------

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	counts, err := s.store.DashboardCounts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "dashboard counts failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

// engineErrorStatus maps engine errors to HTTP statuses: missing records are
// 404, unusable inputs are 422.
func engineErrorStatus(err error) int {
	var notFoundActivity *engine.ActivityNotFoundError
	var notFoundEF *engine.EmissionFactorNotFoundError
	if errors.As(err, &notFoundActivity) || errors.As(err, &notFoundEF) {
		return http.StatusNotFound
	}

	var missing *engine.MissingInputError
	var invalid *engine.InvalidInputError
	var noDerivation *engine.NoQuantityDerivationError
	if errors.As(err, &missing) || errors.As(err, &invalid) || errors.As(err, &noDerivation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
