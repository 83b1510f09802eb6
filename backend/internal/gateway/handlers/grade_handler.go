// ============================================================================
// backend/internal/gateway/handlers/grade_handler.go
// HTTP handlers for grade upload, history, deletion, and consolidation
// ============================================================================

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"sgms_backend/backend/internal/gateway/auth"
	"sgms_backend/backend/internal/gateway/util"
	"sgms_backend/backend/internal/grades"
	"sgms_backend/backend/internal/shared"
	"sgms_backend/backend/internal/upload"
)

// GradeService is the service surface the handlers depend on.
type GradeService interface {
	UploadGrades(ctx context.Context, p grades.UploadParams) (*upload.Summary, error)
	UploadedGrades(ctx context.Context, teacherID string) ([]shared.UploadedGrade, error)
	DeleteGrades(ctx context.Context, actorID string, ids []string) (int64, error)
	DeleteStudentGrades(ctx context.Context, actorID string, lrns []string) (int64, error)
	ConsolidatedGrades(ctx context.Context, sectionIDs []string, quarter string) (*grades.ConsolidatedResult, error)
}

// GradeHandler serves the /api/grades routes.
type GradeHandler struct {
	service      GradeService
	maxFileBytes int64
}

// NewGradeHandler creates a grade handler.
func NewGradeHandler(service GradeService, maxFileBytes int64) *GradeHandler {
	return &GradeHandler{service: service, maxFileBytes: maxFileBytes}
}

// UploadGrades handles POST /api/grades/upload. The request is a multipart
// form with the spreadsheet under "file" plus "assignment_id" and "quarter"
// fields. The whole batch maps to one response: 200 when at least one row
// persisted, 400 when nothing did.
func (h *GradeHandler) UploadGrades(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes)
	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid or oversized multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "A grade file is required under the \"file\" field")
		return
	}
	defer file.Close()

	assignmentID := r.FormValue("assignment_id")
	if assignmentID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "assignment_id is required")
		return
	}

	quarter := r.FormValue("quarter")
	if _, err := shared.ParseQuarter(quarter, false); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.UploadGrades(r.Context(), grades.UploadParams{
		File:         file,
		Filename:     header.Filename,
		TeacherID:    user.ID,
		Role:         user.Role,
		AssignmentID: assignmentID,
		Quarter:      quarter,
	})
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if summary.Failed() {
		status = http.StatusBadRequest
	}
	util.WriteJSON(w, status, summary.ToPayload())
}

// GetUploadedGrades handles GET /api/grades/uploads: the caller's upload
// history within the active school year.
func (h *GradeHandler) GetUploadedGrades(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	uploads, err := h.service.UploadedGrades(r.Context(), user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uploads": uploads,
		"count":   len(uploads),
	})
}

type deleteGradesRequest struct {
	GradeIDs []string `json:"grade_ids"`
}

// DeleteGrades handles DELETE /api/grades: admin removal of ledger rows by id.
func (h *GradeHandler) DeleteGrades(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req deleteGradesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.GradeIDs) == 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "grade_ids is required")
		return
	}

	deleted, err := h.service.DeleteGrades(r.Context(), user.ID, req.GradeIDs)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("%d grade record(s) deleted", deleted),
		"deletedCount": deleted,
	})
}

type deleteStudentGradesRequest struct {
	LRNs []string `json:"lrns"`
}

// DeleteStudentGrades handles DELETE /api/grades/students: admin removal of
// every ledger row held by the named students in the active school year.
func (h *GradeHandler) DeleteStudentGrades(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req deleteStudentGradesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.LRNs) == 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "lrns is required")
		return
	}

	deleted, err := h.service.DeleteStudentGrades(r.Context(), user.ID, req.LRNs)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("%d grade record(s) deleted", deleted),
		"deletedCount": deleted,
	})
}

// GetConsolidatedGrades handles GET /api/grades/consolidated. Sections come
// as a comma-separated "sections" query parameter; omitting it selects the
// unrestricted administrative view. "quarter" selects a real quarter or
// defaults to the combined view.
func (h *GradeHandler) GetConsolidatedGrades(w http.ResponseWriter, r *http.Request) {
	sections := splitParam(r.URL.Query().Get("sections"))

	quarter := r.URL.Query().Get("quarter")
	if quarter != "" {
		if _, err := shared.ParseQuarter(quarter, true); err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.service.ConsolidatedGrades(r.Context(), sections, quarter)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, result)
}

func splitParam(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
