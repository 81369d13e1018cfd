package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/reelhub/apiserver/internal/services"
	"github.com/reelhub/apiserver/internal/store"
	"github.com/reelhub/apiserver/types"
)

// ReportHandler provides the admin moderation endpoints.
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler constructs a handler with the provided service.
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportRouter registers the admin moderation routes. The role gate is
// composed after the auth gate here, at registration time, so it can
// never run against a request without a verified identity.
func ReportRouter(
	r chi.Router,
	reportService *services.ReportService,
	authMiddleware func(http.Handler) http.Handler,
	adminMiddleware func(http.Handler) http.Handler,
) {
	handler := NewReportHandler(reportService)

	r.Use(authMiddleware, adminMiddleware)
	r.Get("/", handler.ListReports)
	r.Post("/{reportID}/resolve", handler.ResolveReport)
}

func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportService.List(r.Context())
	if err != nil {
		writeStoreError(w, "Error showing reports", err)
		return
	}
	writeJSON(w, http.StatusOK, ReportListResponse{Message: "All reports", Reports: reports})
}

func (h *ReportHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseReportID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	var req ResolveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.reportService.Resolve(r.Context(), id, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAction):
			writeError(w, http.StatusBadRequest, "Invalid action: must be approve or reject")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Report not found")
		case errors.Is(err, services.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, "Report already resolved")
		default:
			writeStoreError(w, "Error resolving report", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, ReportResponse{Message: "Report resolved", Report: report})
}

type ResolveReportRequest struct {
	Action string `json:"action"`
}

type ReportListResponse struct {
	Message string         `json:"message"`
	Reports []types.Report `json:"reports"`
}

type ReportResponse struct {
	Message string       `json:"message"`
	Report  types.Report `json:"report"`
}

func parseReportID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "reportID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid report id")
	}
	return id, nil
}
