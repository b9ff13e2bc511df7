package server

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/refresh"
	"github.com/mzee2025/rdi-dashboard/internal/report"
	"github.com/mzee2025/rdi-dashboard/internal/storage"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

var bodyTag = []byte("<body>")

type statusResponse struct {
	Online    string `json:"status"`
	Dashboard string `json:"dashboard"`
	Version   string `json:"version"`
	refresh.Status
}

type updateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Dashboard string    `json:"dashboard"`
	Timestamp time.Time `json:"timestamp"`
}

type runsResponse struct {
	Runs []model.Run `json:"runs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleDashboard serves the published dashboard. The first request on a
// fresh install runs a cycle synchronously.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !s.orch.Status().DocumentExists {
		if err := s.orch.Run(r.Context(), model.TriggerPageLoad); err != nil {
			s.log.Warn("dashboard generation on page load failed", zap.Error(err))
			s.renderError(w, http.StatusInternalServerError, "Unable to generate dashboard. Please check logs.")
			return
		}
	}

	doc, err := s.orch.Dashboard()
	if err != nil {
		s.log.Error("load dashboard", zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, "Error loading dashboard.")
		return
	}

	var banner bytes.Buffer
	err = pages.ExecuteTemplate(&banner, "banner.html.tmpl", struct {
		LastUpdated string
		Refresh     string
	}{
		LastUpdated: s.lastUpdated(),
		Refresh:     bannerRefresh(s.cfg.RefreshInterval),
	})
	if err == nil {
		doc = bytes.Replace(doc, bodyTag, append(append([]byte{}, bodyTag...), banner.Bytes()...), 1)
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(doc) //nolint:errcheck
}

func (s *Server) lastUpdated() string {
	last := s.orch.LastSuccess()
	if last == nil {
		return "Unknown"
	}
	return last.UTC().Format(model.TimeLayout) + " UTC"
}

func bannerRefresh(spec string) string {
	d := report.DescribeInterval(spec)
	if spec == "" {
		return d
	}
	return "Auto-refresh: " + d
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", contentTypeHTML)
	if err := pages.ExecuteTemplate(w, "update.html.tmpl", nil); err != nil {
		s.log.Error("render update page", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, statusResponse{
		Online:    "online",
		Dashboard: s.title(),
		Version:   Version,
		Status:    s.orch.Status(),
	})
}

// handleUpdate starts a background cycle. The request returns before the
// cycle completes.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	err := s.orch.Trigger(r.Context(), model.TriggerManual)
	if errors.Is(err, refresh.ErrInProgress) {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, updateResponse{Success: false, Message: "Update already in progress"})
		return
	}
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, updateResponse{Success: false, Message: err.Error()})
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, updateResponse{Success: true, Message: "Dashboard update triggered"})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))
	runs, err := s.orch.Runs(r.Context(), limit)
	if err != nil {
		s.log.Error("list runs", zap.Error(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "unable to list runs"})
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	render.JSON(w, r, runsResponse{Runs: runs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:    "healthy",
		Dashboard: "RDI Dashboard",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	data, err := s.orch.QualityReport(r.Context())
	if errors.Is(err, refresh.ErrNoData) {
		http.Error(w, "No data available yet. Run an update first.", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("generate quality report", zap.Error(err))
		http.Error(w, "Error generating report.", http.StatusInternalServerError)
		return
	}
	attachment(w, storage.ReportFile, contentTypeXLSX, data)
}

func (s *Server) handleDownloadData(w http.ResponseWriter, r *http.Request) {
	data, err := s.orch.Export()
	if errors.Is(err, refresh.ErrNoData) {
		http.Error(w, "No data available yet. Run an update first.", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("read data export", zap.Error(err))
		http.Error(w, "Error reading data export.", http.StatusInternalServerError)
		return
	}
	attachment(w, storage.ExportFile, contentTypeCSV, data)
}

func attachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(data) //nolint:errcheck
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "error.html.tmpl", struct{ Message string }{msg}); err != nil {
		s.log.Error("render error page", zap.Error(err))
	}
}

func (s *Server) title() string {
	if s.cfg.Title != "" {
		return s.cfg.Title
	}
	return report.DefaultTitle
}
