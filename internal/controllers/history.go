package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rahul4469/gitgrade/internal/analysis"
	"github.com/rahul4469/gitgrade/internal/models"
	"github.com/rahul4469/gitgrade/internal/services"
	"github.com/rahul4469/gitgrade/internal/views"
)

// HistoryController serves stored analyses of the current session.
type HistoryController struct {
	history   HistoryStore
	previewer Previewer
	limit     int
	templates HistoryTemplates
}

// HistoryTemplates holds the templates for history pages.
type HistoryTemplates struct {
	Result *views.Template
	List   *views.Template
}

// NewHistoryController creates a new HistoryController. previewer may be nil.
func NewHistoryController(history HistoryStore, previewer Previewer, limit int, templates HistoryTemplates) *HistoryController {
	if limit <= 0 {
		limit = 20
	}
	return &HistoryController{
		history:   history,
		previewer: previewer,
		limit:     limit,
		templates: templates,
	}
}

// AnalysisResultData holds data for the result template.
type AnalysisResultData struct {
	Record     *models.AnalysisRecord
	Dimensions []analysis.Dimension
	Preview    *services.RepositoryPreview
}

// GetAnalysis renders one stored analysis.
func (c *HistoryController) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := mustSession(w, r)
	if !ok {
		return
	}

	record, ok := c.ownedRecord(w, r, session)
	if !ok {
		return
	}

	data := AnalysisResultData{
		Record:     record,
		Dimensions: record.Report.Breakdown.Dimensions(),
	}
	if c.previewer != nil && !record.Mock {
		data.Preview = c.previewer.Preview(r.Context(), record.RepositoryRef)
	}

	c.templates.Result.ExecuteHTTP(w, r, &views.TemplateData{
		Title: record.Report.RepositoryName,
		Data:  data,
	})
}

// PostDeleteAnalysis removes an analysis from the session's history.
func (c *HistoryController) PostDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := mustSession(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	err = c.history.Delete(r.Context(), id, session.Key)
	if errors.Is(err, models.ErrAnalysisNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("delete analysis %d: %v", id, err)
		http.Error(w, "Failed to delete analysis", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

// GetHistory lists the session's recent analyses.
func (c *HistoryController) GetHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := mustSession(w, r)
	if !ok {
		return
	}

	records, err := c.history.Recent(r.Context(), session.Key, c.limit)
	if err != nil {
		log.Printf("recent analyses: %v", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	c.templates.List.ExecuteHTTP(w, r, &views.TemplateData{
		Title: "History",
		Data:  records,
	})
}

// ownedRecord loads the analysis named in the URL. Analyses of other
// sessions are reported as missing.
func (c *HistoryController) ownedRecord(w http.ResponseWriter, r *http.Request, session *models.Session) (*models.AnalysisRecord, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}

	record, err := c.history.ByID(r.Context(), id)
	if errors.Is(err, models.ErrAnalysisNotFound) || (err == nil && record.SessionKey != session.Key) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		log.Printf("analysis %d: %v", id, err)
		http.Error(w, "Failed to load analysis", http.StatusInternalServerError)
		return nil, false
	}
	return record, true
}
