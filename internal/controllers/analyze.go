package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/rahul4469/gitgrade/internal/analysis"
	"github.com/rahul4469/gitgrade/internal/models"
	"github.com/rahul4469/gitgrade/internal/views"
)

// AnalyzeController handles repository analysis.
type AnalyzeController struct {
	analyzer Analyzer
	settings SettingsStore
	history  HistoryStore
	template *views.Template
}

// NewAnalyzeController creates a new AnalyzeController.
func NewAnalyzeController(
	analyzer Analyzer,
	settings SettingsStore,
	history HistoryStore,
	template *views.Template,
) *AnalyzeController {
	return &AnalyzeController{
		analyzer: analyzer,
		settings: settings,
		history:  history,
		template: template,
	}
}

// AnalyzeFormData holds data for the analyze form template.
type AnalyzeFormData struct {
	RepoURL       string
	Mock          bool
	Endpoint      string
	HasCredential bool
}

// GetAnalyze renders the analysis form.
func (c *AnalyzeController) GetAnalyze(w http.ResponseWriter, r *http.Request) {
	session, ok := mustSession(w, r)
	if !ok {
		return
	}

	settings, err := c.settings.Load(r.Context(), session.Key)
	if err != nil {
		log.Printf("load settings: %v", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	c.template.ExecuteHTTP(w, r, &views.TemplateData{
		Title: "Analyze Repository",
		Data: AnalyzeFormData{
			Endpoint:      settings.Endpoint,
			HasCredential: settings.HasCredential(),
		},
	})
}

// PostAnalyze runs the analysis with the session's settings. On success the
// report is stored and the browser is sent to the result page; on failure
// the form is shown again with the classified message.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	session, ok := mustSession(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := AnalyzeFormData{
		RepoURL: r.FormValue("repo_url"),
		Mock:    r.FormValue("mock") == "true",
	}

	settings, err := c.settings.Load(r.Context(), session.Key)
	if err != nil {
		log.Printf("load settings: %v", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	form.Endpoint = settings.Endpoint
	form.HasCredential = settings.HasCredential()

	ref, err := models.CheckRepositoryInput(form.RepoURL)
	if err != nil {
		c.renderFormError(w, r, form, "Please enter a repository URL.", false)
		return
	}

	report, err := c.analyzer.Analyze(r.Context(), ref, settings.Endpoint, settings.Credential, form.Mock)
	if err != nil {
		var aerr *analysis.Error
		if !errors.As(err, &aerr) {
			log.Printf("analyze %q: unexpected error: %v", ref, err)
			c.renderFormError(w, r, form, "Analysis failed.", false)
			return
		}
		c.renderFormError(w, r, form, aerr.Message, aerr.NeedsSettings())
		return
	}

	record, err := c.history.Create(r.Context(), session.Key, ref, report, form.Mock)
	if err != nil {
		log.Printf("store analysis for %q: %v", ref, err)
		http.Error(w, "Analysis finished but could not be saved", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/analyses/%d", record.ID), http.StatusSeeOther)
}

// renderFormError renders the form with an error message.
func (c *AnalyzeController) renderFormError(w http.ResponseWriter, r *http.Request, form AnalyzeFormData, msg string, needsSettings bool) {
	c.template.ExecuteHTTPWithStatus(w, r, http.StatusUnprocessableEntity, &views.TemplateData{
		Title:         "Analyze Repository",
		Error:         msg,
		NeedsSettings: needsSettings,
		Data:          form,
	})
}
