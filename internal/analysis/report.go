package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Level is the coarse tier the analysis service derives from the score.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelElite        Level = "Elite"
)

// Levels lists every level from lowest to highest.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelElite}

// Rank returns the position of the level in Levels, or -1 if unknown.
func (l Level) Rank() int {
	for i, known := range Levels {
		if l == known {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the fixed levels.
func (l Level) Valid() bool {
	return l.Rank() >= 0
}

// CheckStatus is the outcome of a single checklist item.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckFail CheckStatus = "fail"
)

// ChecklistItem is one automated check reported by the service.
type ChecklistItem struct {
	Item   string      `json:"item" yaml:"item"`
	Status CheckStatus `json:"status" yaml:"status"`
}

// Passed reports whether the check passed.
func (c ChecklistItem) Passed() bool {
	return c.Status == CheckPass
}

// Breakdown holds the per-dimension sub-scores.
// ProjectStructure is nil when the service did not score it.
type Breakdown struct {
	CodeQuality      int  `json:"code_quality" yaml:"code_quality"`
	Documentation    int  `json:"documentation" yaml:"documentation"`
	Testing          int  `json:"testing" yaml:"testing"`
	BestPractices    int  `json:"best_practices" yaml:"best_practices"`
	ProjectStructure *int `json:"project_structure,omitempty" yaml:"project_structure,omitempty"`
}

// Dimension is a named sub-score, ready for display.
type Dimension struct {
	Key    string
	Label  string
	Score  int
	Scored bool
}

// Dimensions returns the breakdown in display order. An unscored
// project structure is reported with Score 0 and Scored false.
func (b Breakdown) Dimensions() []Dimension {
	dims := []Dimension{
		{Key: "code_quality", Label: "Code Quality", Score: b.CodeQuality, Scored: true},
		{Key: "documentation", Label: "Documentation", Score: b.Documentation, Scored: true},
		{Key: "testing", Label: "Testing", Score: b.Testing, Scored: true},
		{Key: "best_practices", Label: "Best Practices", Score: b.BestPractices, Scored: true},
		{Key: "project_structure", Label: "Project Structure"},
	}
	if b.ProjectStructure != nil {
		dims[4].Score = *b.ProjectStructure
		dims[4].Scored = true
	}
	return dims
}

// Report is the validated result of one analysis call.
type Report struct {
	RepositoryName string          `json:"repository_name" yaml:"repository_name"`
	Score          int             `json:"score" yaml:"score"`
	Level          Level           `json:"level" yaml:"level"`
	Summary        string          `json:"summary" yaml:"summary"`
	Breakdown      Breakdown       `json:"breakdown" yaml:"breakdown"`
	Roadmap        []string        `json:"roadmap" yaml:"roadmap"`
	Checklist      []ChecklistItem `json:"checklist,omitempty" yaml:"checklist,omitempty"`
	Tips           []string        `json:"tips,omitempty" yaml:"tips,omitempty"`
	DetailedReport string          `json:"detailed_report,omitempty" yaml:"detailed_report,omitempty"`
}

// Validate checks the range and enum invariants of an already decoded
// report. Presence of required fields is checked at decode time.
func (r *Report) Validate() error {
	if r == nil {
		return &shapeError{reason: "report is empty"}
	}
	if strings.TrimSpace(r.RepositoryName) == "" {
		return &shapeError{field: "repository_name", reason: "is empty"}
	}
	if err := checkScore("score", r.Score); err != nil {
		return err
	}
	if !r.Level.Valid() {
		return &shapeError{field: "level", reason: fmt.Sprintf("%q is not a known level", string(r.Level))}
	}
	if r.Roadmap == nil {
		return &shapeError{field: "roadmap", reason: "is missing"}
	}
	for _, d := range r.Breakdown.Dimensions() {
		if !d.Scored {
			continue
		}
		if err := checkScore("breakdown."+d.Key, d.Score); err != nil {
			return err
		}
	}
	for i, c := range r.Checklist {
		if c.Status != CheckPass && c.Status != CheckFail {
			return &shapeError{field: fmt.Sprintf("checklist[%d].status", i), reason: fmt.Sprintf("%q is not pass or fail", string(c.Status))}
		}
	}
	return nil
}

func checkScore(field string, v int) error {
	if v < 0 || v > 100 {
		return &shapeError{field: field, reason: fmt.Sprintf("%d is outside 0..100", v)}
	}
	return nil
}

// shapeError describes why a success body was rejected. Its text is safe
// to show to users: it names a field, never the raw decoder output.
type shapeError struct {
	field  string
	reason string
}

func (e *shapeError) Error() string {
	if e.field == "" {
		return e.reason
	}
	return fmt.Sprintf("field %q %s", e.field, e.reason)
}

// wireReport mirrors Report with pointers so absent and null fields can
// be told apart from zero values.
type wireReport struct {
	RepositoryName *string         `json:"repository_name"`
	Score          *int            `json:"score"`
	Level          *string         `json:"level"`
	Summary        *string         `json:"summary"`
	Breakdown      *wireBreakdown  `json:"breakdown"`
	Roadmap        *[]string       `json:"roadmap"`
	Checklist      []wireCheckItem `json:"checklist"`
	Tips           []string        `json:"tips"`
	DetailedReport *string         `json:"detailed_report"`
}

type wireBreakdown struct {
	CodeQuality      *int `json:"code_quality"`
	Documentation    *int `json:"documentation"`
	Testing          *int `json:"testing"`
	BestPractices    *int `json:"best_practices"`
	ProjectStructure *int `json:"project_structure"`
}

type wireCheckItem struct {
	Item   *string `json:"item"`
	Status *string `json:"status"`
}

// DecodeReport parses and validates a success body. It never returns a
// partially valid report.
func DecodeReport(body []byte) (*Report, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &shapeError{reason: "body is empty"}
	}
	if trimmed[0] != '{' {
		return nil, &shapeError{reason: "body is not a JSON object"}
	}

	var w wireReport
	if err := json.Unmarshal(trimmed, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &shapeError{field: typeErr.Field, reason: "has the wrong type"}
		}
		return nil, &shapeError{reason: "body is not valid JSON"}
	}

	switch {
	case w.RepositoryName == nil:
		return nil, missing("repository_name")
	case w.Score == nil:
		return nil, missing("score")
	case w.Level == nil:
		return nil, missing("level")
	case w.Summary == nil:
		return nil, missing("summary")
	case w.Breakdown == nil:
		return nil, missing("breakdown")
	case w.Roadmap == nil || *w.Roadmap == nil:
		return nil, missing("roadmap")
	}

	b := w.Breakdown
	switch {
	case b.CodeQuality == nil:
		return nil, missing("breakdown.code_quality")
	case b.Documentation == nil:
		return nil, missing("breakdown.documentation")
	case b.Testing == nil:
		return nil, missing("breakdown.testing")
	case b.BestPractices == nil:
		return nil, missing("breakdown.best_practices")
	}

	report := &Report{
		RepositoryName: *w.RepositoryName,
		Score:          *w.Score,
		Level:          Level(*w.Level),
		Summary:        *w.Summary,
		Breakdown: Breakdown{
			CodeQuality:      *b.CodeQuality,
			Documentation:    *b.Documentation,
			Testing:          *b.Testing,
			BestPractices:    *b.BestPractices,
			ProjectStructure: b.ProjectStructure,
		},
		Roadmap: *w.Roadmap,
		Tips:    w.Tips,
	}
	if w.DetailedReport != nil {
		report.DetailedReport = *w.DetailedReport
	}
	if w.Checklist != nil {
		report.Checklist = make([]ChecklistItem, 0, len(w.Checklist))
		for i, c := range w.Checklist {
			if c.Item == nil {
				return nil, missing(fmt.Sprintf("checklist[%d].item", i))
			}
			if c.Status == nil {
				return nil, missing(fmt.Sprintf("checklist[%d].status", i))
			}
			report.Checklist = append(report.Checklist, ChecklistItem{Item: *c.Item, Status: CheckStatus(*c.Status)})
		}
	}

	if err := report.Validate(); err != nil {
		return nil, err
	}
	return report, nil
}

func missing(field string) error {
	return &shapeError{field: field, reason: "is missing"}
}
