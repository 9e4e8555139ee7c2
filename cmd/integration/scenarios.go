package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/service"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/tools"
)

// Responder is the orchestrator surface the scenarios exercise.
type Responder interface {
	BeginMessage() model.Event
	Respond(ctx context.Context, sess tools.Session, turn model.Turn, emit service.EmitFunc) error
}

type scenario struct {
	name string
	run  func(ctx context.Context, r *runner) error
}

type result struct {
	name string
	err  error
}

var scenarios = []scenario{
	{"Basic Functionality", basicFunctionality},
	{"Simple Chat", simpleChat},
	{"Tool Calls", toolCalls},
	{"Project Search", projectSearch},
	{"Display Project with ID", displayProjectWithID},
	{"Search and Display Flow", searchAndDisplayFlow},
	{"Conversation Flow", conversationFlow},
	{"Error Scenarios", errorScenarios},
}

func selectScenarios(names []string) []scenario {
	if len(names) == 0 {
		return scenarios
	}
	var out []scenario
	for _, sc := range scenarios {
		for _, n := range names {
			if strings.EqualFold(sc.name, n) {
				out = append(out, sc)
			}
		}
	}
	return out
}

type runner struct {
	responder Responder
	p         printer
}

func newRunner(responder Responder, w io.Writer, s styles) *runner {
	return &runner{responder: responder, p: printer{w: w, s: s}}
}

func (r *runner) run(ctx context.Context, list []scenario) []result {
	fmt.Fprintln(r.p.w, r.p.s.warn.Render("Started at: "+time.Now().Format("2006-01-02 15:04:05")))
	results := make([]result, 0, len(list))
	for _, sc := range list {
		fmt.Fprintln(r.p.w)
		r.p.section(sc.name)
		err := sc.run(ctx, r)
		if err != nil {
			r.p.fail("%s failed: %v", sc.name, err)
		} else {
			r.p.ok("%s completed", sc.name)
		}
		results = append(results, result{name: sc.name, err: err})
	}
	return results
}

// summarize prints the summary table and reports whether every scenario passed.
func (r *runner) summarize(results []result) bool {
	fmt.Fprintln(r.p.w)
	r.p.section("Test Summary")

	passed := 0
	for _, res := range results {
		if res.err == nil {
			passed++
			fmt.Fprintf(r.p.w, "%s %s\n", r.p.s.ok.Render("[PASS]"), res.name)
			continue
		}
		fmt.Fprintf(r.p.w, "%s %s\n", r.p.s.fail.Render("[FAIL]"), res.name)
		fmt.Fprintf(r.p.w, "       %s\n", r.p.s.fail.Render(preview(res.err.Error(), 60)))
	}
	failed := len(results) - passed

	fmt.Fprintln(r.p.w, "\nResults:")
	fmt.Fprintln(r.p.w, "  "+r.p.s.ok.Render(fmt.Sprintf("Passed: %d", passed)))
	fmt.Fprintln(r.p.w, "  "+r.p.s.fail.Render(fmt.Sprintf("Failed: %d", failed)))
	fmt.Fprintf(r.p.w, "  Total: %d\n", len(results))

	if failed == 0 {
		fmt.Fprintln(r.p.w, "\n"+r.p.s.ok.Render("All tests passed!"))
	} else {
		fmt.Fprintln(r.p.w, "\n"+r.p.s.fail.Render("Some tests failed"))
	}
	return failed == 0
}

// transcript is the outcome of one turn.
type transcript struct {
	events []model.Event
	text   string
	calls  []model.Event
	nav    []map[string]any
}

func (t transcript) called(name string) (model.Event, bool) {
	for _, c := range t.calls {
		if c.ToolName == name {
			return c, true
		}
	}
	return model.Event{}, false
}

func (r *runner) turn(ctx context.Context, responseID int, utterances ...model.Utterance) (transcript, error) {
	var t transcript
	sess := tools.Session{CallID: "integration-call", Mode: model.ModeVoice}
	turn := model.Turn{
		Transcript: utterances,
		ResponseID: responseID,
		Kind:       model.InteractionResponseRequired,
		Mode:       model.ModeVoice,
	}
	err := r.responder.Respond(ctx, sess, turn, func(ev model.Event) error {
		t.events = append(t.events, ev)
		switch ev.Kind {
		case model.EventTextDelta:
			t.text += ev.Content
		case model.EventToolInvocation:
			t.calls = append(t.calls, ev)
		case model.EventMetadata:
			t.nav = append(t.nav, ev.Metadata)
		}
		if ev.ResponseID != responseID && ev.Kind == model.EventTextDelta {
			return fmt.Errorf("event for response %d in turn %d", ev.ResponseID, responseID)
		}
		return nil
	})
	if err != nil {
		return t, err
	}
	if len(t.events) == 0 || !t.events[len(t.events)-1].Terminal() {
		return t, errors.New("turn did not end with a completion event")
	}
	return t, nil
}

func user(text string) model.Utterance  { return model.Utterance{Role: model.RoleUser, Content: text} }
func agent(text string) model.Utterance { return model.Utterance{Role: model.RoleAgent, Content: text} }

func basicFunctionality(_ context.Context, r *runner) error {
	begin := r.responder.BeginMessage()
	r.p.line(r.p.s.agent, "   Begin message:", preview(begin.Content, 50))
	if begin.Content == "" {
		return errors.New("begin message is empty")
	}
	if begin.ResponseID != 0 || !begin.ContentComplete {
		return fmt.Errorf("begin message must be complete with response id 0, got id %d", begin.ResponseID)
	}
	r.p.ok("begin message response id %d", begin.ResponseID)
	return nil
}

func simpleChat(ctx context.Context, r *runner) error {
	r.p.line(r.p.s.user, "User:", "Hi Bill, tell me a bit about yourself.")
	t, err := r.turn(ctx, 1, user("Hi Bill, tell me a bit about yourself."))
	if err != nil {
		return err
	}
	r.p.line(r.p.s.agent, "Bill:", preview(t.text, 200))
	if strings.TrimSpace(t.text) == "" {
		return errors.New("no spoken content")
	}
	r.p.note("received %d events", len(t.events))
	return nil
}

func toolCalls(ctx context.Context, r *runner) error {
	cases := []struct{ prompt, tool string }{
		{"Show me your homepage", "display_homepage"},
		{"Display your education", "display_education_page"},
		{"Show me the SlugLoop project", "display_project"},
	}
	var missed []string
	for _, tc := range cases {
		r.p.line(r.p.s.warn, "\nTesting:", tc.prompt)
		t, err := r.turn(ctx, 10, user(tc.prompt))
		if err != nil {
			return err
		}
		if _, ok := t.called(tc.tool); ok {
			r.p.ok("tool called: %s", tc.tool)
		} else {
			r.p.fail("expected %s", tc.tool)
			missed = append(missed, tc.tool)
		}
		r.p.line(r.p.s.tool, "   Message:", preview(t.text, 100))
	}
	if len(missed) > 0 {
		return fmt.Errorf("tools not called: %s", strings.Join(missed, ", "))
	}
	return nil
}

func projectSearch(ctx context.Context, r *runner) error {
	for _, q := range []string{
		"What AI projects have you built?",
		"Do you have any hackathon projects with computer vision?",
	} {
		r.p.line(r.p.s.warn, "\nTesting search:", q)
		t, err := r.turn(ctx, 20, user(q))
		if err != nil {
			return err
		}
		if call, ok := t.called("search_projects"); ok {
			r.p.ok("search_projects called with %s", call.Arguments)
		} else {
			r.p.note("search_projects was not called")
		}
		r.p.line(r.p.s.agent, "   Response excerpt:", preview(t.text, 100))
	}
	return nil
}

func displayProjectWithID(ctx context.Context, r *runner) error {
	cases := []struct{ prompt, id string }{
		{"Show me the InterviewGPT project", "interviewgpt"},
		{"Display the GetItDone project", "getitdone"},
		{"Can you show me AssignmentTracker?", "assignmenttracker"},
	}
	var missed []string
	for _, tc := range cases {
		r.p.line(r.p.s.warn, "\nTesting:", tc.prompt)
		t, err := r.turn(ctx, 30, user(tc.prompt))
		if err != nil {
			return err
		}
		call, ok := t.called("display_project")
		if !ok {
			r.p.fail("display_project was not called")
			missed = append(missed, tc.id)
			continue
		}
		r.p.ok("display_project called with %s", call.Arguments)
		if !strings.Contains(call.Arguments, tc.id) {
			r.p.note("different id than expected %q", tc.id)
		}
		for _, md := range t.nav {
			r.p.ok("metadata sent: page=%v project_id=%v", md["page"], md["project_id"])
		}
	}
	if len(missed) > 0 {
		return fmt.Errorf("display_project not called for: %s", strings.Join(missed, ", "))
	}
	return nil
}

func searchAndDisplayFlow(ctx context.Context, r *runner) error {
	first := user("What AI projects have you worked on?")
	r.p.line(r.p.s.user, "Step 1 User:", first.Content)
	t1, err := r.turn(ctx, 40, first)
	if err != nil {
		return err
	}
	r.p.line(r.p.s.agent, "Bill:", preview(t1.text, 200))
	_, searched := t1.called("search_projects")

	second := user("That sounds cool, can you show me the first one?")
	r.p.line(r.p.s.user, "Step 2 User:", second.Content)
	t2, err := r.turn(ctx, 41, first, agent(t1.text), second)
	if err != nil {
		return err
	}
	r.p.line(r.p.s.agent, "Bill:", preview(t2.text, 200))
	_, displayed := t2.called("display_project")

	r.p.note("search called: %t, display called: %t, navigations: %d", searched, displayed, len(t2.nav))
	return nil
}

func conversationFlow(ctx context.Context, r *runner) error {
	history := []model.Utterance{
		user("Hi there!"),
		agent("Hey, I'm Bill. How can I help you?"),
		user("Where did you go to school?"),
		agent("I studied computer science at UC Santa Cruz."),
		user("Nice! Can you show me that page and tell me about your favorite class?"),
	}
	t, err := r.turn(ctx, 50, history...)
	if err != nil {
		return err
	}
	for _, c := range t.calls {
		r.p.line(r.p.s.tool, "   [Tool]", c.ToolName)
	}
	r.p.line(r.p.s.agent, "Bill:", preview(t.text, 200))
	r.p.note("%d tools called", len(t.calls))
	return nil
}

func errorScenarios(ctx context.Context, r *runner) error {
	t, err := r.turn(ctx, 200)
	if err != nil {
		return fmt.Errorf("empty transcript: %w", err)
	}
	r.p.ok("handled empty transcript (%d events)", len(t.events))

	long := make([]model.Utterance, 0, 20)
	for i := 0; i < 20; i++ {
		content := fmt.Sprintf("Message %d: Some conversation content here...", i)
		if i%2 == 0 {
			long = append(long, user(content))
		} else {
			long = append(long, agent(content))
		}
	}
	t, err = r.turn(ctx, 201, long...)
	if err != nil {
		return fmt.Errorf("long conversation: %w", err)
	}
	r.p.ok("handled long conversation (%d events)", len(t.events))
	return nil
}
