package models

import (
	"fmt"
	"regexp"
	"strings"
)

// both URL and shorthand formats supported:
// - https://github.com/owner/repo
// - https://github.com/owner/repo.git
// - github.com/owner/repo
// - owner/repo
var (
	GitHubURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)
	ShorthandPattern = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?$`)
)

const maxRepositoryRefLen = 512

// RepositoryRef is a GitHub owner/name pair.
type RepositoryRef struct {
	Owner string
	Name  string
}

func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// URL returns the canonical https URL of the repository.
func (r RepositoryRef) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Name)
}

// ParseRepositoryRef extracts owner and repository name from a GitHub URL
// or owner/repo shorthand.
func ParseRepositoryRef(ref string) (RepositoryRef, error) {
	ref = strings.TrimSpace(ref)

	matches := GitHubURLPattern.FindStringSubmatch(ref)
	if matches == nil {
		matches = ShorthandPattern.FindStringSubmatch(ref)
	}
	if len(matches) != 3 {
		return RepositoryRef{}, ErrInvalidRepositoryURL
	}
	return RepositoryRef{Owner: matches[1], Name: matches[2]}, nil
}

// CheckRepositoryInput is the form-level pre-validation for the analyze
// page: the reference must be non-blank and of sane length. Anything else
// is forwarded to the analysis service, which decides.
func CheckRepositoryInput(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", fmt.Errorf("%w: repository reference is required", ErrInvalidRepositoryURL)
	case len(ref) > maxRepositoryRefLen:
		return "", fmt.Errorf("%w: repository reference is too long", ErrInvalidRepositoryURL)
	}
	return ref, nil
}
