// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	apperrors "github.com/lepinkainen/gutenshelf/internal/errors"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected an item.
	ActionSelected
	// ActionSkipped indicates the user skipped the selection.
	ActionSkipped
	// ActionStopped indicates the user stopped processing entirely.
	ActionStopped
)

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action    SelectionAction
	Selection *catalog.RawBook
}

type bookItem struct {
	catalog.RawBook
}

func (i bookItem) Title() string {
	return strings.ToUpper(i.RawBook.Title)
}

func (i bookItem) FilterValue() string {
	return i.RawBook.Title
}

func (i bookItem) Description() string {
	return strings.Join(i.AuthorNames(), "; ")
}

type itemStyles struct {
	normal        lipgloss.Style
	selected      lipgloss.Style
	idStyle       lipgloss.Style
	titleStyle    lipgloss.Style
	authorStyle   lipgloss.Style
	metadataStyle lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.Copy().
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		idStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		authorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")),
		metadataStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
	}
}

type bookDelegate struct {
	styles itemStyles
}

func newDelegate() bookDelegate {
	return bookDelegate{styles: newItemStyles()}
}

func (d bookDelegate) Height() int                         { return 4 }
func (d bookDelegate) Spacing() int                        { return 1 }
func (d bookDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d bookDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	book, ok := item.(bookItem)
	if !ok {
		return
	}

	width := m.Width() - 4
	idLine := d.styles.idStyle.Render(formatID(book.RawBook))
	titleLine := d.styles.titleStyle.Render(truncate(book.Title(), width))
	authorLine := d.styles.authorStyle.Render(truncate(formatAuthors(book.RawBook), width))
	metadataLine := d.styles.metadataStyle.Render(formatMetadata(book.RawBook, width))

	content := lipgloss.JoinVertical(lipgloss.Left, idLine, titleLine, authorLine, metadataLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list   list.Model
	query  string
	result SelectionResult
}

func newModel(query string, items []bookItem) *model {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	l := list.New(listItems, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		list:   l,
		query:  query,
		result: SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(bookItem); ok {
				book := selected.RawBook
				m.result = SelectionResult{
					Action:    ActionSelected,
					Selection: &book,
				}
				return m, tea.Quit
			}
		case "s", "esc":
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case "ctrl+c", "q":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("No exact title match for: %s", m.query))
	listView := m.list.View()
	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		skipButtonStyle.Render(" Skip "),
		lipgloss.NewStyle().Padding(0, 2).Render(""),
		stopButtonStyle.Render(" Stop "),
	)
	help := helpStyle.Render("Up/Down navigate | Enter save to catalog | s skip | q stop")
	return lipgloss.JoinVertical(lipgloss.Left, header, listView, buttons, help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	skipButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("178")).
			Foreground(lipgloss.Color("0")).
			Bold(true)

	stopButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("161")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// SelectBook presents an interactive picker over search candidates.
// Records without an id cannot be stored and are not offered.
func SelectBook(query string, candidates []catalog.RawBook) (SelectionResult, error) {
	items := make([]bookItem, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != nil {
			items = append(items, bookItem{RawBook: c})
		}
	}
	if len(items) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	finalModel, err := runProgram(newModel(query, items))
	if err != nil {
		return SelectionResult{}, err
	}

	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}

	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

// ChooseBook adapts SelectBook to a chooser callback: skipping yields
// ok=false and stopping yields a StopProcessingError.
func ChooseBook(query string, candidates []catalog.RawBook) (catalog.RawBook, bool, error) {
	result, err := SelectBook(query, candidates)
	if err != nil {
		return catalog.RawBook{}, false, err
	}

	switch result.Action {
	case ActionSelected:
		return *result.Selection, true, nil
	case ActionStopped:
		return catalog.RawBook{}, false, apperrors.NewStopProcessingError("selection stopped by user")
	default:
		return catalog.RawBook{}, false, nil
	}
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}

func formatID(book catalog.RawBook) string {
	if book.ID == nil {
		return "[#?]"
	}
	return fmt.Sprintf("[#%d]", *book.ID)
}

func formatAuthors(book catalog.RawBook) string {
	if len(book.Authors) == 0 {
		return "Unknown author"
	}
	return strings.Join(book.AuthorNames(), "; ")
}

// formatMetadata creates the metadata line with languages and download count
func formatMetadata(book catalog.RawBook, availableWidth int) string {
	var parts []string

	if len(book.Languages) > 0 {
		parts = append(parts, strings.ToUpper(strings.Join(book.Languages, ",")))
	}
	if book.DownloadCount > 0 {
		parts = append(parts, formatDownloads(book.DownloadCount))
	}
	if len(book.Subjects) > 0 {
		parts = append(parts, book.Subjects[0])
	}

	if len(parts) == 0 {
		return "No metadata available"
	}

	metadata := strings.Join(parts, " | ")
	if availableWidth > 0 && len(metadata) > availableWidth {
		metadata = truncate(metadata, availableWidth)
	}

	return metadata
}

// formatDownloads formats download count in a compact way
func formatDownloads(count int) string {
	if count >= 1000 {
		return fmt.Sprintf("%.1fK downloads", float64(count)/1000)
	}
	return fmt.Sprintf("%d downloads", count)
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
