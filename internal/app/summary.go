package app

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// StartupSummary is printed once before the server starts listening.
type StartupSummary struct {
	Addr        string
	SiteURL     string
	ProviderID  string
	Prompt      string
	PromptFrom  string
	Prompts     []string
	StorePath   string
	RateLimit   string
	MailEnabled bool
	AdminRoutes bool
	MaxBodyMB   int
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	const title = "STARTUP SUMMARY"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[HTTP]")
	fmt.Fprintf(w, "  listen:     %s\n", s.Addr)
	fmt.Fprintf(w, "  site url:   %s\n", orDash(s.SiteURL))
	fmt.Fprintf(w, "  max body:   %d MB\n", s.MaxBodyMB)
	fmt.Fprintf(w, "  admin:      %s\n", onOff(s.AdminRoutes))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[MODEL]")
	fmt.Fprintf(w, "  provider:   %s\n", s.ProviderID)
	fmt.Fprintf(w, "  prompt:     %s (%s)\n", s.Prompt, orDash(s.PromptFrom))
	fmt.Fprintf(w, "  available:  %s\n", formatList(s.Prompts))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[SERVICES]")
	fmt.Fprintf(w, "  store:      %s\n", orDash(s.StorePath))
	fmt.Fprintf(w, "  rate limit: %s\n", orDash(s.RateLimit))
	fmt.Fprintf(w, "  mail:       %s\n", onOff(s.MailEnabled))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
