package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"github.com/rahul4469/gitgrade/internal/models"
)

// DefaultPreviewTimeout bounds one GitHub lookup.
const DefaultPreviewTimeout = 5 * time.Second

// RepositoryPreview is the public metadata shown next to an analysis.
type RepositoryPreview struct {
	FullName    string
	Description string
	Language    string
	HTMLURL     string
	Stars       int
	Forks       int
}

// GitHubFetcher looks up repository metadata for the result page. It is
// decoration only: a failed lookup never affects an analysis.
type GitHubFetcher struct {
	Client  *github.Client
	Timeout time.Duration
}

// NewGitHubFetcher creates a GitHub API client. An empty token means
// unauthenticated requests; an empty baseURL means api.github.com.
func NewGitHubFetcher(token, baseURL string) (*GitHubFetcher, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API base URL: %w", err)
		}
		client.BaseURL = u
	}

	return &GitHubFetcher{
		Client:  client,
		Timeout: DefaultPreviewTimeout,
	}, nil
}

// FetchPreview resolves ref to owner/repo and fetches its metadata.
func (gf *GitHubFetcher) FetchPreview(ctx context.Context, ref string) (*RepositoryPreview, error) {
	repoRef, err := models.ParseRepositoryRef(ref)
	if err != nil {
		return nil, err
	}

	if gf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gf.Timeout)
		defer cancel()
	}

	repo, _, err := gf.Client.Repositories.Get(ctx, repoRef.Owner, repoRef.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s: %w", repoRef, err)
	}

	return &RepositoryPreview{
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		Language:    repo.GetLanguage(),
		HTMLURL:     repo.GetHTMLURL(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
	}, nil
}

// Preview is FetchPreview with failures logged and swallowed.
func (gf *GitHubFetcher) Preview(ctx context.Context, ref string) *RepositoryPreview {
	preview, err := gf.FetchPreview(ctx, ref)
	if err != nil {
		log.Printf("github preview skipped: ref=%q err=%v", ref, err)
		return nil
	}
	return preview
}
