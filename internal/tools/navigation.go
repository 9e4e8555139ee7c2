package tools

import (
	"context"
	"fmt"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
)

// Page names understood by the frontend.
const (
	PagePersonal  = "personal"
	PageEducation = "education"
	PageProject   = "project"
)

// Navigation builds the side-channel metadata for a page change.
func Navigation(page, projectID string) map[string]any {
	md := map[string]any{"type": "navigation", "page": page}
	if projectID != "" {
		md["project_id"] = projectID
	}
	return md
}

type displayHomepage struct{}

// DisplayHomepage shows the overview page.
func DisplayHomepage() Tool { return displayHomepage{} }

func (displayHomepage) Name() string { return "display_homepage" }

func (displayHomepage) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "display_homepage",
		Description: "Show the homepage with Bill's general overview. Use when talking about Bill in general.",
		Parameters:  schema([]string{LeadInParam}, map[string]any{LeadInParam: leadInProp()}),
	}
}

func (displayHomepage) Execute(context.Context, Session, map[string]any) (Result, error) {
	return Result{
		Content:  "Successfully displayed the homepage",
		Metadata: Navigation(PagePersonal, ""),
	}, nil
}

type displayEducation struct{}

// DisplayEducationPage shows the education page.
func DisplayEducationPage() Tool { return displayEducation{} }

func (displayEducation) Name() string { return "display_education_page" }

func (displayEducation) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "display_education_page",
		Description: "Show the education page. Use when talking about school, degrees or coursework.",
		Parameters:  schema([]string{LeadInParam}, map[string]any{LeadInParam: leadInProp()}),
	}
}

func (displayEducation) Execute(context.Context, Session, map[string]any) (Result, error) {
	return Result{
		Content:  "Successfully displayed the education page",
		Metadata: Navigation(PageEducation, ""),
	}, nil
}

type displayProject struct{}

// DisplayProject shows one project's page.
func DisplayProject() Tool { return displayProject{} }

func (displayProject) Name() string { return "display_project" }

func (displayProject) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: "display_project",
		Description: "Show a specific project's page. Always call get_project_details for the same id " +
			"in the same turn.",
		Parameters: schema([]string{"id", LeadInParam}, map[string]any{
			"id":        stringProp("The project id, for example \"gitpt\"."),
			LeadInParam: leadInProp(),
		}),
	}
}

func (displayProject) Execute(_ context.Context, _ Session, args map[string]any) (Result, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return Result{}, err
	}
	return Result{
		Content:  fmt.Sprintf("Successfully displayed the project page for %s", id),
		Metadata: Navigation(PageProject, id),
	}, nil
}

type endCall struct{}

// EndCall ends the conversation.
func EndCall() Tool { return endCall{} }

func (endCall) Name() string { return "end_call" }

func (endCall) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "end_call",
		Description: "End the conversation when the user says goodbye or asks to hang up.",
		Parameters: schema([]string{LeadInParam}, map[string]any{
			LeadInParam: stringProp("The goodbye said right before hanging up."),
		}),
	}
}

func (endCall) Execute(context.Context, Session, map[string]any) (Result, error) {
	return Result{Content: "Call ended", EndCall: true}, nil
}
