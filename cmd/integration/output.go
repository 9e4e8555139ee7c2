package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	section lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	user    lipgloss.Style
	agent   lipgloss.Style
	tool    lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		section: lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		user:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		agent:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		tool:    lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
	}
}

type printer struct {
	w io.Writer
	s styles
}

func (p printer) section(title string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(p.w, p.s.section.Render(rule))
	fmt.Fprintln(p.w, p.s.section.Render(title))
	fmt.Fprintln(p.w, p.s.section.Render(rule))
}

func (p printer) ok(format string, args ...any) {
	fmt.Fprintln(p.w, "   "+p.s.ok.Render("[OK] "+fmt.Sprintf(format, args...)))
}

func (p printer) fail(format string, args ...any) {
	fmt.Fprintln(p.w, "   "+p.s.fail.Render("[FAIL] "+fmt.Sprintf(format, args...)))
}

func (p printer) note(format string, args ...any) {
	fmt.Fprintln(p.w, "   "+p.s.warn.Render("[Note] "+fmt.Sprintf(format, args...)))
}

func (p printer) line(style lipgloss.Style, label, text string) {
	fmt.Fprintf(p.w, "%s %s\n", label, style.Render(text))
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
