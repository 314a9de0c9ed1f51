package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/tasklist/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

const (
	boxChecked   = "☑"
	boxUnchecked = "☐"
)

// OK prints a success line.
func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+msg))
}

// Fail prints an error line.
func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
}

// PrintItems renders items as a bordered panel with a progress bar.
func PrintItems(w io.Writer, items []models.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, panelStyle.Render(mutedStyle.Render("No items yet.")))
		return
	}
	done, _ := stats(items)
	lines := make([]string, 0, len(items)+2)
	lines = append(lines, header(items), progressBar(done, len(items), 28))
	for _, it := range items {
		lines = append(lines, renderLine(it)+"  "+mutedStyle.Render(it.ID))
	}
	fmt.Fprintln(w, panelStyle.Render(strings.Join(lines, "\n")))
}

// PrintItem renders a single item line.
func PrintItem(w io.Writer, it models.Item) {
	fmt.Fprintln(w, renderLine(it)+" "+mutedStyle.Render(it.ID))
}

func renderLine(it models.Item) string {
	if it.Done {
		return successStyle.Render(boxChecked) + " " + doneStyle.Render(it.Title)
	}
	return mutedStyle.Render(boxUnchecked) + " " + it.Title
}

func header(items []models.Item) string {
	done, pending := stats(items)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(items),
	)
}

func progressBar(done, total, width int) string {
	if width <= 0 {
		width = 28
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}

func stats(items []models.Item) (done, pending int) {
	for _, it := range items {
		if it.Done {
			done++
		} else {
			pending++
		}
	}
	return
}

