// Package tui is the interactive terminal client. It renders the item list,
// issues one API call per user action and folds each result into its local
// copy of the list through itemcache.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/itemcache"
	"github.com/starford/tasklist/internal/models"
)

// API is the subset of the HTTP client the TUI needs.
type API interface {
	ListItemsIfChanged(ctx context.Context, etag string) ([]models.Item, string, bool, error)
	CreateItem(ctx context.Context, title string) (*models.Item, error)
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

const (
	loadFailedText = "Failed to load items."
	emptyTitleText = "Title cannot be empty"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdding
	modeEditing
)

// Messages produced by commands.
type loadedMsg struct {
	items   []models.Item
	etag    string
	changed bool
}

type loadFailedMsg struct{ err error }

type mutatedMsg struct {
	action itemcache.Action
	id     string // item to keep selected, if any
}

type mutateFailedMsg struct {
	op  string
	id  string
	err error
}

// listItem adapts models.Item to bubbles/list.Item.
type listItem struct{ item models.Item }

func (i listItem) Title() string       { return i.item.Title }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.item.Title }

// itemDelegate renders one line per item.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+renderLine(it.item))
}

var (
	addKey     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editKey    = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename"))
	toggleKey  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteKey  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
)

// Model is the Bubble Tea model for the item list.
type Model struct {
	ctx    context.Context
	api    API
	logger *slog.Logger

	items []models.Item
	etag  string

	list  list.Model
	input textinput.Model
	mode  mode

	loading  bool
	loadErr  error
	inputErr string
	status   string
	editID   string

	width, height int
}

// New returns a model that loads the list on start.
func New(ctx context.Context, api API, logger *slog.Logger) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	extra := func() []key.Binding {
		return []key.Binding{addKey, editKey, toggleKey, deleteKey, refreshKey}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500

	m := Model{
		ctx:     ctx,
		api:     api,
		logger:  logger,
		list:    l,
		input:   ti,
		loading: true,
		width:   80,
		height:  24,
	}
	m.resize()
	m.syncList()
	return m
}

// Items returns the locally held list.
func (m Model) Items() []models.Item { return m.items }

// Init loads the list.
func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case loadedMsg:
		m.loading = false
		m.loadErr = nil
		if msg.changed {
			m.items = itemcache.Reduce(m.items, itemcache.Loaded{Items: msg.items})
			m.etag = msg.etag
			m.syncList()
		}
		return m, nil

	case loadFailedMsg:
		m.loading = false
		m.loadErr = msg.err
		m.logger.Error("load items failed", slog.String("error", msg.err.Error()))
		return m, nil

	case mutatedMsg:
		m.status = ""
		m.items = itemcache.Reduce(m.items, msg.action)
		// The local list no longer matches the fetched one.
		m.etag = ""
		m.syncList()
		m.selectID(msg.id)
		return m, nil

	case mutateFailedMsg:
		m.logger.Error("mutation failed",
			slog.String("op", msg.op),
			slog.String("id", msg.id),
			slog.String("error", msg.err.Error()))
		m.status = fmt.Sprintf("Failed to %s item.", msg.op)
		if msg.id != "" && errors.Is(msg.err, apperr.ErrNotFound) {
			// The item is gone on the server; drop the stale row.
			m.items = itemcache.Reduce(m.items, itemcache.Deleted{ID: msg.id})
			m.etag = ""
			m.syncList()
		}
		return m, nil
	}

	if m.mode != modeBrowse {
		return m.updateInput(msg)
	}
	return m.updateBrowse(msg)
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			title := models.NormalizeTitle(m.input.Value())
			if title == "" {
				m.inputErr = emptyTitleText
				return m, nil
			}
			var cmd tea.Cmd
			if m.mode == modeAdding {
				cmd = m.createCmd(title)
			} else {
				cmd = m.renameCmd(m.editID, title)
			}
			m.closeInput()
			return m, cmd
		case "esc":
			m.closeInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, isKey := msg.(tea.KeyMsg)
	if isKey && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(k, refreshKey):
			m.loading = true
			m.status = ""
			return m, m.loadCmd()
		case key.Matches(k, addKey):
			m.openInput(modeAdding, "", "New item title...")
			return m, textinput.Blink
		}
		if it, ok := m.selected(); ok {
			switch {
			case key.Matches(k, toggleKey):
				return m, m.setDoneCmd(it.ID, !it.Done)
			case key.Matches(k, deleteKey):
				return m, m.deleteCmd(it.ID)
			case key.Matches(k, editKey):
				m.editID = it.ID
				m.openInput(modeEditing, it.Title, "Edit item title...")
				return m, textinput.Blink
			}
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if len(m.items) == 0 {
		switch {
		case m.loading:
			return panelStyle.Render(mutedStyle.Render("Loading items..."))
		case m.loadErr != nil:
			return panelStyle.Render(errorStyle.Render(loadFailedText) + "\n" +
				helpStyle.Render("r retry • q quit"))
		}
	}

	content := m.list.View()
	if m.loadErr != nil {
		content += "\n" + errorStyle.Render(loadFailedText)
	}
	if m.status != "" {
		content += "\n" + errorStyle.Render(m.status)
	}
	if m.mode != modeBrowse {
		title := "Add new item"
		if m.mode == modeEditing {
			title = "Rename item"
		}
		if m.inputErr != "" {
			title += " · " + errorStyle.Render(m.inputErr)
		}
		content += "\n" + panelStyle.Render(title+"\n"+m.input.View())
	}
	return panelStyle.Render(content)
}

func (m *Model) openInput(md mode, value, placeholder string) {
	m.mode = md
	m.inputErr = ""
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.resize()
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.inputErr = ""
	m.editID = ""
	m.input.SetValue("")
	m.input.Blur()
	m.resize()
}

func (m *Model) selected() (models.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return models.Item{}, false
	}
	return it.item, true
}

// syncList mirrors m.items into the list widget, keeping the cursor in range.
func (m *Model) syncList() {
	li := make([]list.Item, len(m.items))
	for i, it := range m.items {
		li[i] = listItem{item: it}
	}
	idx := m.list.Index()
	m.list.SetItems(li)
	if idx >= len(li) {
		idx = len(li) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = header(m.items)
}

// selectID moves the cursor to the item with the given id when it is listed.
func (m *Model) selectID(id string) {
	if id == "" || m.list.FilterState() != list.Unfiltered {
		return
	}
	if i := itemcache.Index(m.items, id); i >= 0 {
		m.list.Select(i)
	}
}

func (m *Model) resize() {
	h := m.height - 4
	if m.mode != modeBrowse {
		h -= 4
	}
	if h < 1 {
		h = 1
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) loadCmd() tea.Cmd {
	etag := m.etag
	return func() tea.Msg {
		items, newETag, changed, err := m.api.ListItemsIfChanged(m.ctx, etag)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return loadedMsg{items: items, etag: newETag, changed: changed}
	}
}

func (m Model) createCmd(title string) tea.Cmd {
	return func() tea.Msg {
		it, err := m.api.CreateItem(m.ctx, title)
		if err != nil {
			return mutateFailedMsg{op: "add", err: err}
		}
		return mutatedMsg{action: itemcache.Created{Item: *it}, id: it.ID}
	}
}

func (m Model) renameCmd(id, title string) tea.Cmd {
	return m.updateCmd("rename", id, models.ItemPatch{Title: &title})
}

func (m Model) setDoneCmd(id string, done bool) tea.Cmd {
	return m.updateCmd("update", id, models.ItemPatch{Done: &done})
}

func (m Model) updateCmd(op, id string, patch models.ItemPatch) tea.Cmd {
	return func() tea.Msg {
		it, err := m.api.UpdateItem(m.ctx, id, patch)
		if err != nil {
			return mutateFailedMsg{op: op, id: id, err: err}
		}
		return mutatedMsg{action: itemcache.Updated{Item: *it}, id: it.ID}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.api.DeleteItem(m.ctx, id); err != nil {
			return mutateFailedMsg{op: "delete", id: id, err: err}
		}
		return mutatedMsg{action: itemcache.Deleted{ID: id}}
	}
}

// Run starts the program on the alternate screen and blocks until the user quits.
func Run(ctx context.Context, api API, logger *slog.Logger, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, api, logger), opts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

var _ tea.Model = Model{}
