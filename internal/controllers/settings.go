package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/rahul4469/gitgrade/internal/config"
	"github.com/rahul4469/gitgrade/internal/models"
	"github.com/rahul4469/gitgrade/internal/views"
)

// SettingsController edits the session's endpoint and API key.
type SettingsController struct {
	settings SettingsStore
	template *views.Template
}

func NewSettingsController(settings SettingsStore, template *views.Template) *SettingsController {
	return &SettingsController{
		settings: settings,
		template: template,
	}
}

// SettingsFormData holds data for the settings template. The stored
// credential itself is never sent back to the browser.
type SettingsFormData struct {
	Endpoint         string
	HasCredential    bool
	MaskedCredential string
}

func (c *SettingsController) GetSettings(w http.ResponseWriter, r *http.Request) {
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

	data := &views.TemplateData{
		Title: "Settings",
		Data:  settingsForm(settings),
	}
	if r.URL.Query().Get("saved") == "1" {
		data.Success = "Settings saved."
	}
	c.template.ExecuteHTTP(w, r, data)
}

// PostSettings saves the endpoint and, when given, a new API key. A blank
// key keeps the stored one unless clear_key is set.
func (c *SettingsController) PostSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := mustSession(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	settings, err := c.settings.Load(r.Context(), session.Key)
	if err != nil {
		log.Printf("load settings: %v", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	endpoint := strings.TrimSpace(r.FormValue("endpoint"))
	if err := config.ValidateEndpoint(endpoint); err != nil {
		form := settingsForm(settings)
		form.Endpoint = endpoint
		c.renderError(w, r, form, "API endpoint "+err.Error()+".")
		return
	}

	settings.Endpoint = endpoint
	if r.FormValue("clear_key") == "true" {
		settings.Credential = ""
	}
	if key := strings.TrimSpace(r.FormValue("api_key")); key != "" {
		settings.Credential = key
	}

	err = c.settings.Save(r.Context(), settings)
	if errors.Is(err, models.ErrInvalidSettings) {
		c.renderError(w, r, settingsForm(settings), "These settings were rejected. Check the API endpoint.")
		return
	}
	if err != nil {
		log.Printf("save settings: %v", err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
}

func (c *SettingsController) renderError(w http.ResponseWriter, r *http.Request, form SettingsFormData, msg string) {
	c.template.ExecuteHTTPWithStatus(w, r, http.StatusUnprocessableEntity, &views.TemplateData{
		Title: "Settings",
		Error: msg,
		Data:  form,
	})
}

func settingsForm(s *models.Settings) SettingsFormData {
	return SettingsFormData{
		Endpoint:         s.Endpoint,
		HasCredential:    s.HasCredential(),
		MaskedCredential: config.MaskSecret(s.Credential),
	}
}
