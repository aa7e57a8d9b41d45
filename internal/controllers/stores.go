package controllers

import (
	"context"
	"net/http"

	"github.com/rahul4469/gitgrade/internal/analysis"
	"github.com/rahul4469/gitgrade/internal/middleware"
	"github.com/rahul4469/gitgrade/internal/models"
	"github.com/rahul4469/gitgrade/internal/services"
)

// Analyzer runs one analysis; *analysis.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, repositoryRef, endpoint, credential string, useMock bool) (*analysis.Report, error)
}

// SettingsStore is implemented by *models.SettingsService.
type SettingsStore interface {
	Load(ctx context.Context, sessionKey string) (*models.Settings, error)
	Save(ctx context.Context, s *models.Settings) error
}

// HistoryStore is implemented by *models.AnalysisService.
type HistoryStore interface {
	Create(ctx context.Context, sessionKey, repositoryRef string, report *analysis.Report, mock bool) (*models.AnalysisRecord, error)
	ByID(ctx context.Context, id int64) (*models.AnalysisRecord, error)
	Recent(ctx context.Context, sessionKey string, limit int) ([]*models.AnalysisRecord, error)
	Delete(ctx context.Context, id int64, sessionKey string) error
}

// Previewer is implemented by *services.GitHubFetcher.
type Previewer interface {
	Preview(ctx context.Context, ref string) *services.RepositoryPreview
}

// mustSession returns the request's dashboard session, writing a 500 when
// the session middleware did not run.
func mustSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	session := middleware.CurrentSession(r)
	if session == nil {
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return session, true
}
