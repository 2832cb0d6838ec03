package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/roster-hub/classroom-roster/internal/application/command"
	"github.com/roster-hub/classroom-roster/internal/application/query"
	"github.com/roster-hub/classroom-roster/internal/domain/grouping"
	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/infrastructure/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":       "Classroom Roster API",
		"version":    s.config.Version,
		"strategies": grouping.Strategies(),
		"endpoints": map[string]string{
			"health":      "/health",
			"roster":      "/api/v1/classes/{class}/students",
			"groups":      "/api/v1/classes/{class}/groups",
			"sessions":    "/api/v1/classes/{class}/sessions",
			"stats":       "/api/v1/classes/{class}/stats",
			"attention":   "/api/v1/classes/{class}/attention",
			"report":      "/api/v1/classes/{class}/report.xlsx",
			"leaderboard": "/api/v1/leaderboard",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, r, http.StatusOK, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSearchRoster handles GET /api/v1/classes/{class}/students?q=
func (s *Server) handleSearchRoster(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.SearchRoster.Handle(r.Context(), query.SearchRosterQuery{
		ClassName: r.PathValue("class"),
		Text:      r.URL.Query().Get("q"),
	})
	if err != nil {
		s.writeError(w, r, "search_roster", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Total})
}

// handleImportRoster handles POST /api/v1/classes/{class}/students/import.
// The body is either a raw xlsx workbook or a multipart form with a "file" part.
func (s *Server) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	className := r.PathValue("class")

	body, closeBody, err := uploadedFile(r)
	if err != nil {
		s.writeError(w, r, "import_roster", err)
		return
	}
	defer closeBody()

	parsed, err := spreadsheet.ImportRoster(body, className)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = shared.WrapError("student", "Import", shared.ErrInvalidFormat, "unreadable roster workbook", err)
		}
		s.writeError(w, r, "import_roster", err)
		return
	}

	rows := make([]command.RosterRow, 0, len(parsed))
	for _, p := range parsed {
		rows = append(rows, command.RosterRow{
			Line:        p.Line,
			ID:          p.ID,
			Name:        p.Name,
			SeatNumber:  p.SeatNumber,
			PhotoURL:    p.PhotoURL,
			Tags:        p.Tags,
			Familiarity: p.Familiarity,
		})
	}

	result, err := s.deps.ImportRoster.Handle(r.Context(), command.ImportRosterCommand{
		ClassName: className,
		Rows:      rows,
	})
	if err != nil {
		s.writeError(w, r, "import_roster", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// uploadedFile returns the workbook stream of an import request.
func uploadedFile(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, nil, err
		}
		return nil, nil, shared.WrapError("student", "Import", shared.ErrInvalidInput, `multipart body needs a "file" part`, err)
	}
	return file, func() { _ = file.Close() }, nil
}

// buildGroupsRequest is the body of POST /api/v1/classes/{class}/groups.
type buildGroupsRequest struct {
	Strategy  string `json:"strategy"`
	GroupSize int    `json:"group_size"`
	Query     string `json:"q"`
}

// handleBuildGroups handles POST /api/v1/classes/{class}/groups
func (s *Server) handleBuildGroups(w http.ResponseWriter, r *http.Request) {
	var req buildGroupsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "build_groups", err)
		return
	}

	result, err := s.deps.BuildGroups.Handle(r.Context(), query.BuildGroupsQuery{
		ClassName: r.PathValue("class"),
		Strategy:  req.Strategy,
		GroupSize: req.GroupSize,
		Text:      req.Query,
	})
	if err != nil {
		s.writeError(w, r, "build_groups", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result.Groups)})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION & STATISTICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordSessionRequest is the body of POST /api/v1/classes/{class}/sessions.
// Score, accuracy and streak are derived from the answers on the server.
type recordSessionRequest struct {
	Answers  []stats.AnswerResult `json:"answers"`
	PlayedAt *time.Time           `json:"played_at,omitempty"`
}

// handleRecordSession handles POST /api/v1/classes/{class}/sessions
func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	var req recordSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "record_session", err)
		return
	}

	cmd := command.RecordSessionCommand{
		ClassName: r.PathValue("class"),
		Answers:   req.Answers,
	}
	if req.PlayedAt != nil {
		cmd.PlayedAt = req.PlayedAt.UTC()
	}

	result, err := s.deps.RecordSession.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, "record_session", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, result)
}

// handleRecentSessions handles GET /api/v1/classes/{class}/sessions/recent?limit=
func (s *Server) handleRecentSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryParamInt(r, "limit", query.RecentSessionsLimit)
	if err != nil {
		s.writeError(w, r, "recent_sessions", err)
		return
	}

	records, err := s.deps.ClassStats.Recent(r.Context(), r.PathValue("class"), limit)
	if err != nil {
		s.writeError(w, r, "recent_sessions", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, records, &ResponseMeta{TotalCount: len(records)})
}

// handleClassStats handles GET /api/v1/classes/{class}/stats
func (s *Server) handleClassStats(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ClassStats.Handle(r.Context(), query.ClassStatsQuery{ClassName: r.PathValue("class")})
	if err != nil {
		s.writeError(w, r, "class_stats", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleNeedsAttention handles GET /api/v1/classes/{class}/attention?limit=
func (s *Server) handleNeedsAttention(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryParamInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, "needs_attention", err)
		return
	}

	result, err := s.deps.NeedsAttention.Handle(r.Context(), query.NeedsAttentionQuery{
		ClassName: r.PathValue("class"),
		Limit:     limit,
	})
	if err != nil {
		s.writeError(w, r, "needs_attention", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result.Students)})
}

// handleClassReport handles GET /api/v1/classes/{class}/report.xlsx
func (s *Server) handleClassReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.ClassReport.Handle(r.Context(), r.PathValue("class"))
	if err != nil {
		s.writeError(w, r, "class_report", err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.ExportClassReport(&buf, spreadsheet.ClassReport{
		ClassName:   report.ClassName,
		Stats:       report.Stats,
		Sessions:    report.Sessions,
		Students:    report.Students,
		Attention:   report.Attention,
		GeneratedAt: report.GeneratedAt,
	}); err != nil {
		s.writeError(w, r, "class_report", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": report.ClassName + "-report.xlsx",
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleLeaderboard handles GET /api/v1/leaderboard
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Leaderboard.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, "leaderboard", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result.Entries)})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return shared.WrapError("http", "Decode", shared.ErrInvalidFormat, "malformed JSON body", err)
	}
	return nil
}
