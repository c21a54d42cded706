package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/zepp-steps-cli/internal/application"
	"github.com/bnema/zepp-steps-cli/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// StaleAfter marks the last submission as stale once it is older than
	// this. Zero disables the marker.
	StaleAfter time.Duration
}

func renderView(statuses []application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Zepp Step Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.Status, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(status.Account)),
		s.detail.Render(sessionLine(status)),
	}

	if line := scheduleLine(status.Schedule, s); line != "" {
		parts = append(parts, line)
	}
	if line := submissionLine(status.Account.LastSubmission, opts, s); line != "" {
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account domain.Account) string {
	name := strings.TrimSpace(account.Name)
	masked := account.Identity.Masked()
	if name == "" || name == masked {
		return fmt.Sprintf("%s (%s)", masked, account.ID)
	}
	return fmt.Sprintf("%s <%s> (%s)", name, masked, account.ID)
}

func sessionLine(status application.Status) string {
	session := "session: none"
	if status.Account.Session != nil {
		session = "session: stale"
		if status.SessionFresh {
			session = "session: fresh"
		}
	}

	bind := "unbound"
	if status.Account.Remote.Bound {
		bind = "bound"
	}

	return fmt.Sprintf("%s | wechat: %s", session, bind)
}

func scheduleLine(schedule *domain.Schedule, s styles) string {
	if schedule == nil {
		return s.empty.Render("no schedule")
	}

	percent := 0.0
	if schedule.TargetSteps > 0 {
		percent = clampPercent(float64(schedule.CumulativeSteps) / float64(schedule.TargetSteps) * 100)
	}

	label := s.window.Render(fmt.Sprintf("%02d-%02dh:", schedule.StartHour, schedule.EndHour))
	bar := renderProgressBar(percent, 24, s)
	meta := s.barText.Render(fmt.Sprintf("%d/%d steps", schedule.CumulativeSteps, schedule.TargetSteps))

	line := lipgloss.JoinHorizontal(lipgloss.Top, label, " ", bar, " ", meta)
	if schedule.Status != domain.ScheduleActive {
		line += " " + s.warning.Render(fmt.Sprintf("[%s]", schedule.Status))
	}

	return line
}

func submissionLine(submission *domain.Submission, opts RenderOptions, s styles) string {
	if submission == nil {
		return ""
	}

	outcome := "ok"
	if !submission.Success {
		outcome = "failed"
	}
	line := s.submission.Render(fmt.Sprintf(
		"last submit: %d steps %s at %s",
		submission.Steps, outcome, submission.At.Format("15:04 on 02 Jan"),
	))

	if !submission.Success {
		line += " " + s.warning.Render(truncateMessage(submission.Message))
	}
	if !opts.Now.IsZero() && opts.StaleAfter > 0 && opts.Now.Sub(submission.At) > opts.StaleAfter {
		line += " " + s.warning.Render("[stale]")
	}

	return line
}

func truncateMessage(message string) string {
	const limit = 48
	message = strings.TrimSpace(message)
	if len(message) <= limit {
		return message
	}
	return message[:limit] + "..."
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
