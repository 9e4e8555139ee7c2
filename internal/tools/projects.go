package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/search"
)

// ProjectSearcher is the search surface the project tools depend on.
type ProjectSearcher interface {
	SearchProjects(ctx context.Context, query string, topK int) ([]model.ProjectRecord, error)
	GetProject(ctx context.Context, id string) (*model.ProjectRecord, error)
	FindSimilar(ctx context.Context, id string, topK int) ([]model.ProjectRecord, error)
}

type searchProjects struct {
	searcher ProjectSearcher
	topK     int
}

// SearchProjects finds projects by topic. Results list id, name and summary only.
func SearchProjects(s ProjectSearcher, defaultTopK int) Tool {
	if defaultTopK <= 0 {
		defaultTopK = search.DefaultTopK
	}
	return &searchProjects{searcher: s, topK: defaultTopK}
}

func (*searchProjects) Name() string { return "search_projects" }

func (t *searchProjects) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_projects",
		Description: "Search Bill's portfolio for projects matching a topic, technology or theme.",
		Parameters: schema([]string{"query", LeadInParam}, map[string]any{
			"query": stringProp("What to search for, for example \"AI healthcare projects\"."),
			"top_k": map[string]any{
				"type":        "integer",
				"description": fmt.Sprintf("How many results to return. Defaults to %d.", t.topK),
			},
			LeadInParam: leadInProp(),
		}),
	}
}

func (t *searchProjects) Execute(ctx context.Context, _ Session, args map[string]any) (Result, error) {
	query, err := requireString(args, "query")
	if err != nil {
		return Result{}, err
	}

	records, err := t.searcher.SearchProjects(ctx, query, intArg(args, "top_k", t.topK))
	if err != nil {
		return Result{}, fmt.Errorf("searching projects: %w", err)
	}
	if len(records) == 0 {
		return Result{Content: fmt.Sprintf("No projects found matching %q.", query)}, nil
	}
	return Result{Content: renderSummaries(fmt.Sprintf("Found %d projects:", len(records)), records)}, nil
}

type getProjectDetails struct {
	searcher ProjectSearcher
}

// GetProjectDetails fetches one project's full record. It has no side
// effect on the frontend.
func GetProjectDetails(s ProjectSearcher) Tool {
	return &getProjectDetails{searcher: s}
}

func (*getProjectDetails) Name() string { return "get_project_details" }

func (*getProjectDetails) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: "get_project_details",
		Description: "Get the full details of one project by id. Always follow with display_project " +
			"for the same id.",
		Parameters: schema([]string{"project_id", LeadInParam}, map[string]any{
			"project_id": stringProp("The project id, for example \"gitpt\"."),
			LeadInParam:  leadInProp(),
		}),
	}
}

func (t *getProjectDetails) Execute(ctx context.Context, _ Session, args map[string]any) (Result, error) {
	id, err := requireString(args, "project_id")
	if err != nil {
		return Result{}, err
	}

	p, err := t.searcher.GetProject(ctx, id)
	if errors.Is(err, search.ErrNotFound) {
		return Result{Content: fmt.Sprintf("Project not found: %s", id)}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("fetching project %s: %w", id, err)
	}
	return Result{Content: renderDetails(p)}, nil
}

type findSimilarProjects struct {
	searcher ProjectSearcher
	topK     int
}

// FindSimilarProjects lists projects related to a given project.
func FindSimilarProjects(s ProjectSearcher, defaultTopK int) Tool {
	if defaultTopK <= 0 {
		defaultTopK = search.DefaultTopK
	}
	return &findSimilarProjects{searcher: s, topK: defaultTopK}
}

func (*findSimilarProjects) Name() string { return "find_similar_projects" }

func (*findSimilarProjects) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "find_similar_projects",
		Description: "Find projects similar to a given project id.",
		Parameters: schema([]string{"project_id", LeadInParam}, map[string]any{
			"project_id": stringProp("The project to compare against."),
			"top_k":      map[string]any{"type": "integer", "description": "How many results to return."},
			LeadInParam:  leadInProp(),
		}),
	}
}

func (t *findSimilarProjects) Execute(ctx context.Context, _ Session, args map[string]any) (Result, error) {
	id, err := requireString(args, "project_id")
	if err != nil {
		return Result{}, err
	}

	records, err := t.searcher.FindSimilar(ctx, id, intArg(args, "top_k", t.topK))
	if errors.Is(err, search.ErrNotFound) {
		return Result{Content: fmt.Sprintf("Project not found: %s", id)}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("finding projects similar to %s: %w", id, err)
	}
	if len(records) == 0 {
		return Result{Content: fmt.Sprintf("No projects similar to %s.", id)}, nil
	}
	return Result{Content: renderSummaries(fmt.Sprintf("Projects similar to %s:", id), records)}, nil
}

func renderSummaries(header string, records []model.ProjectRecord) string {
	var b strings.Builder
	b.WriteString(header)
	for i, r := range records {
		fmt.Fprintf(&b, "\n%d. [id: %s] %s (score %.3f): %s", i+1, r.ID, r.Name, r.Score, r.Summary)
	}
	return b.String()
}

func renderDetails(p *model.ProjectRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s (id: %s)\nSummary: %s\nDetails: %s", p.Name, p.ID, p.Summary, p.Details)
	if p.GitHub != "" {
		fmt.Fprintf(&b, "\nGitHub: %s", p.GitHub)
	}
	if p.Demo != "" {
		fmt.Fprintf(&b, "\nDemo: %s", p.Demo)
	}
	return b.String()
}

// Default returns the built-in tool set.
func Default(s ProjectSearcher, topK int) []Tool {
	return []Tool{
		DisplayHomepage(),
		DisplayEducationPage(),
		DisplayProject(),
		SearchProjects(s, topK),
		GetProjectDetails(s),
		FindSimilarProjects(s, topK),
		EndCall(),
	}
}
