package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agenda/internal/config"
	"agenda/internal/query"
	"agenda/internal/storage"
	"agenda/internal/task"
)

type mode int

const (
	modeList mode = iota
	modeEdit
	modeSearch
)

// styleSet holds the lipgloss styles for the active theme. The theme is
// persisted in the store so it survives restarts.
type styleSet struct {
	header  lipgloss.Style
	overdue lipgloss.Style
	done    lipgloss.Style
	high    lipgloss.Style
	medium  lipgloss.Style
	low     lipgloss.Style
	stats   lipgloss.Style
}

func stylesFor(theme string) styleSet {
	if theme == "dark" {
		return styleSet{
			header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
			overdue: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			done:    lipgloss.NewStyle().Faint(true).Strikethrough(true),
			high:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			medium:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
			low:     lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
			stats:   lipgloss.NewStyle().Faint(true),
		}
	}
	return styleSet{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		overdue: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		done:    lipgloss.NewStyle().Faint(true).Strikethrough(true),
		high:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		medium:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		low:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		stats:   lipgloss.NewStyle().Faint(true),
	}
}

// editState walks the task fields one input at a time, the same flow for
// adding and editing. An empty taskID means a new task.
type editState struct {
	taskID      string
	title       string
	description string
	date        string
	clock       string
	priority    string
	category    string
	index       int
}

// row is one rendered line: a bucket header or a task at a flat index.
type row struct {
	header query.Bucket
	task   *task.Task
}

type Model struct {
	store      *storage.Store
	cfg        config.Config
	settings   storage.Settings
	styles     styleSet
	tasks      []task.Task
	rows       []row
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	filter     query.Config
	confirmDel bool
	pendingDel *task.Task
	edit       *editState
	now        func() time.Time
}

func newModel(store *storage.Store, cfg config.Config) (Model, error) {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	filter := query.DefaultConfig()
	if s := strings.ToLower(cfg.DefaultFilter); s != "" {
		filter.Status = query.Status(s)
	}
	if s := strings.ToLower(cfg.DefaultScope); s != "" {
		filter.Scope = query.DateScope(s)
	}

	settings, err := store.GetSettings()
	if err != nil {
		return Model{}, err
	}

	m := Model{
		store:    store,
		cfg:      cfg,
		settings: settings,
		styles:   stylesFor(settings.Theme),
		status:   "Press 'a' to add, space to toggle, 'd' to delete.",
		input:    ti,
		mode:     modeList,
		filter:   filter,
		now:      time.Now,
	}
	if err := m.reload(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func Run(store *storage.Store, cfg config.Config) error {
	m, err := newModel(store, cfg)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m)
	_, err = program.Run()
	return err
}

// reload re-reads the whole list from the store and rebuilds the view rows.
// Every mutation goes through here so the screen always reflects storage.
func (m *Model) reload() error {
	tasks, err := m.store.FetchTasks()
	if err != nil {
		return err
	}
	m.tasks = tasks
	m.rebuild()
	return nil
}

func (m *Model) rebuild() {
	now := m.now()
	visible := query.SortTasks(query.Filter(m.tasks, m.filter, now), now)
	groups := query.GroupByDate(visible, now)

	m.rows = m.rows[:0]
	for _, b := range query.Buckets() {
		bucket := groups[b]
		if len(bucket) == 0 {
			continue
		}
		m.rows = append(m.rows, row{header: b})
		for i := range bucket {
			t := bucket[i]
			m.rows = append(m.rows, row{task: &t})
		}
	}
	m.cursor = clampCursor(m.cursor, len(m.rows))
	m.snapToTask(1)
}

// snapToTask moves the cursor off header rows in the given direction.
func (m *Model) snapToTask(dir int) {
	for m.cursor >= 0 && m.cursor < len(m.rows) && m.rows[m.cursor].task == nil {
		m.cursor += dir
	}
	if m.cursor >= len(m.rows) || m.cursor < 0 {
		// Walked off the edge; settle on the first task if any.
		for i, r := range m.rows {
			if r.task != nil {
				m.cursor = i
				return
			}
		}
		m.cursor = 0
	}
}

func (m Model) selected() *task.Task {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].task
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.edit != nil {
			return m.updateEditMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		if m.mode == modeSearch {
			return m.updateSearchMode(msg.String(), msg)
		}
		return m.updateListMode(msg.String())
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		m.moveCursor(1)
	case m.cfg.Keys.Up, "up":
		m.moveCursor(-1)
	case m.cfg.Keys.Add:
		m.edit = &editState{priority: string(task.PriorityMedium), category: string(task.CategoryOther)}
		m.input.SetValue("")
		m.input.Placeholder = m.edit.currentLabel()
		m.input.Focus()
		m.mode = modeEdit
		m.status = "New task: Enter to advance, Esc to cancel"
	case m.cfg.Keys.Edit:
		t := m.selected()
		if t == nil {
			m.status = "No task selected"
			return m, nil
		}
		m.edit = &editState{
			taskID:      t.ID,
			title:       t.Title,
			description: t.Description,
			date:        task.FormatDate(t.Date),
			clock:       t.Time,
			priority:    string(t.Priority),
			category:    string(t.Category),
		}
		m.input.SetValue(m.edit.currentValue())
		m.input.Placeholder = m.edit.currentLabel()
		m.input.Focus()
		m.mode = modeEdit
		m.status = "Edit task: Enter to advance, Esc to cancel"
	case m.cfg.Keys.Toggle:
		t := m.selected()
		if t == nil {
			return m, nil
		}
		if _, err := m.store.ToggleComplete(t.ID); err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
			return m, nil
		}
		if err := m.reload(); err != nil {
			m.status = fmt.Sprintf("reload failed: %v", err)
		} else {
			m.status = "Toggled task"
		}
	case m.cfg.Keys.Duplicate:
		t := m.selected()
		if t == nil {
			return m, nil
		}
		copied, err := m.store.DuplicateTask(t.ID, m.now())
		if err != nil {
			m.status = fmt.Sprintf("duplicate failed: %v", err)
			return m, nil
		}
		if err := m.reload(); err != nil {
			m.status = fmt.Sprintf("reload failed: %v", err)
		} else {
			m.status = fmt.Sprintf("Duplicated \"%s\"", copied.Title)
		}
	case m.cfg.Keys.Delete:
		t := m.selected()
		if t == nil {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case m.cfg.Keys.Search:
		m.mode = modeSearch
		m.input.SetValue(m.filter.Search)
		m.input.Placeholder = "Search title or description"
		m.input.Focus()
		m.status = "Search: Enter to apply, Esc to clear"
	case m.cfg.Keys.NextScope:
		m.filter.Scope = nextScope(m.filter.Scope)
		m.rebuild()
		m.status = "Scope: " + string(m.filter.Scope)
	case m.cfg.Keys.Status:
		m.filter.Status = nextStatus(m.filter.Status)
		m.rebuild()
		m.status = "Status: " + string(m.filter.Status)
	case m.cfg.Keys.Priority:
		m.filter.Priority = nextChoice(m.filter.Priority, priorityChoices)
		m.rebuild()
		m.status = "Priority: " + m.filter.Priority
	case m.cfg.Keys.Category:
		m.filter.Category = nextChoice(m.filter.Category, categoryChoices)
		m.rebuild()
		m.status = "Category: " + m.filter.Category
	case m.cfg.Keys.Theme:
		m.settings.Theme = nextTheme(m.settings.Theme)
		m.styles = stylesFor(m.settings.Theme)
		if err := m.store.SaveSettings(m.settings); err != nil {
			m.status = fmt.Sprintf("save settings failed: %v", err)
		} else {
			m.status = "Theme: " + m.settings.Theme
		}
	case m.cfg.Keys.View:
		m.settings.ViewMode = nextView(m.settings.ViewMode)
		if err := m.store.SaveSettings(m.settings); err != nil {
			m.status = fmt.Sprintf("save settings failed: %v", err)
		} else {
			m.status = "View: " + m.settings.ViewMode
		}
	}
	return m, nil
}

// moveCursor steps over header rows so the cursor always rests on a task.
func (m *Model) moveCursor(dir int) {
	next := m.cursor + dir
	for next >= 0 && next < len(m.rows) && m.rows[next].task == nil {
		next += dir
	}
	if next >= 0 && next < len(m.rows) {
		m.cursor = next
	}
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.filter.Search = ""
		m.mode = modeList
		m.input.Blur()
		m.rebuild()
		m.status = "Search cleared"
		return m, nil
	case m.cfg.Keys.Confirm:
		m.filter.Search = strings.TrimSpace(m.input.Value())
		m.mode = modeList
		m.input.Blur()
		m.rebuild()
		if m.filter.Search == "" {
			m.status = "Search cleared"
		} else {
			m.status = fmt.Sprintf("Searching for %q", m.filter.Search)
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		if err := m.store.DeleteTask(m.pendingDel.ID); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
			m.confirmDel = false
			m.pendingDel = nil
			return m, nil
		}
		if err := m.reload(); err != nil {
			m.status = fmt.Sprintf("reload failed: %v", err)
		} else {
			m.status = "Deleted task"
		}
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) updateEditMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.edit = nil
		m.mode = modeList
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case "tab", "down":
		m.edit.setCurrentValue(m.input.Value())
		m.edit.index = wrapIndex(m.edit.index+1, len(editFields()))
		m.syncEditInput()
		return m, nil
	case "shift+tab", "up":
		m.edit.setCurrentValue(m.input.Value())
		m.edit.index = wrapIndex(m.edit.index-1, len(editFields()))
		m.syncEditInput()
		return m, nil
	case m.cfg.Keys.Confirm:
		m.edit.setCurrentValue(m.input.Value())
		if m.edit.index >= len(editFields())-1 {
			return m.saveEdit()
		}
		m.edit.index++
		m.syncEditInput()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) syncEditInput() {
	m.input.SetValue(m.edit.currentValue())
	m.input.Placeholder = m.edit.currentLabel()
	m.status = fmt.Sprintf("Editing %s (field %d of %d)", m.edit.currentLabel(), m.edit.index+1, len(editFields()))
}

func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	e := m.edit
	date, err := task.ParseDate(e.date)
	if err != nil {
		m.status = fmt.Sprintf("date invalid: %v", err)
		return m, nil
	}

	var saveErr error
	if e.taskID == "" {
		t := task.New(e.title, e.description, date, e.clock, task.Priority(e.priority), task.Category(e.category), m.now())
		saveErr = m.store.AddTask(t)
	} else {
		t, err := m.store.GetTask(e.taskID)
		if err != nil {
			m.status = fmt.Sprintf("load failed: %v", err)
			return m, nil
		}
		t.Title = strings.TrimSpace(e.title)
		t.Description = strings.TrimSpace(e.description)
		t.Date = task.Day(date)
		t.Time = strings.TrimSpace(e.clock)
		t.Priority = task.Priority(e.priority)
		t.Category = task.Category(e.category)
		saveErr = m.store.UpdateTask(t)
	}
	if saveErr != nil {
		m.status = fmt.Sprintf("save failed: %v", saveErr)
		return m, nil
	}

	m.edit = nil
	m.mode = modeList
	m.input.Blur()
	m.input.SetValue("")
	if err := m.reload(); err != nil {
		m.status = fmt.Sprintf("reload failed: %v", err)
	} else {
		m.status = "Saved task"
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.header.Render("Agenda"))
	b.WriteString("  ")
	b.WriteString(m.styles.stats.Render(m.renderStats()))
	b.WriteString("\n")
	b.WriteString(m.styles.stats.Render(m.renderFilterLine()))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString("No tasks match. Press 'a' to add one.")
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderRows())
	}

	if m.edit != nil {
		b.WriteString("\n")
		b.WriteString(m.renderEditBox())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	} else if m.mode == modeSearch {
		b.WriteString("\nSearch: ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(m.styles.stats.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func (m Model) renderRows() string {
	now := m.now()
	var b strings.Builder
	for i, r := range m.rows {
		if r.task == nil {
			b.WriteString(m.styles.header.Render(string(r.header)))
			b.WriteString("\n")
			continue
		}
		t := r.task

		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}
		checkbox := "[ ]"
		if t.Completed {
			checkbox = "[x]"
		}

		line := fmt.Sprintf("%s %s %s %s", cursor, checkbox, m.priorityMarker(t.Priority), t.Title)
		// Compact view keeps only the title; the list view adds schedule
		// and category detail.
		if m.settings.ViewMode != "compact" {
			if t.HasDate() {
				line += " " + task.FormatDate(t.Date)
				if t.Time != "" {
					line += " " + t.Time
				}
			}
			if t.Category != "" {
				line += " #" + string(t.Category)
			}
		}

		switch {
		case t.Completed:
			line = m.styles.done.Render(line)
		case t.IsOverdue(now):
			line = m.styles.overdue.Render(line)
		}
		b.WriteString("  " + line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStats() string {
	s := query.Stats(m.tasks, m.now())
	return fmt.Sprintf("%d tasks • %d pending • %d overdue • %d%% done",
		s.Total, s.Pending, s.Overdue, s.CompletionRate)
}

func (m Model) renderFilterLine() string {
	parts := []string{
		"status:" + string(m.filter.Status),
		"scope:" + string(m.filter.Scope),
		"priority:" + m.filter.Priority,
		"category:" + m.filter.Category,
	}
	if m.filter.Search != "" {
		parts = append(parts, "search:"+m.filter.Search)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderEditBox() string {
	fields := editFields()
	values := []string{
		m.edit.title,
		m.edit.description,
		m.edit.date,
		m.edit.clock,
		m.edit.priority,
		m.edit.category,
	}
	var b strings.Builder
	for i, name := range fields {
		prefix := " "
		if i == m.edit.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-24s : %s\n", prefix, name, val))
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s edit • %s toggle • %s duplicate • %s delete • %s search • %s scope • %s/%s/%s filters • %s theme • %s view • %s quit",
		k.Up, k.Down, k.Add, k.Edit, k.Toggle, k.Duplicate, k.Delete, k.Search, k.NextScope, k.Status, k.Priority, k.Category, k.Theme, k.View, k.Quit)
}

func editFields() []string {
	return []string{
		"title",
		"description",
		"date (YYYY-MM-DD)",
		"time (HH:MM)",
		"priority (high/medium/low)",
		"category",
	}
}

func (e editState) currentLabel() string {
	return editFields()[e.index]
}

func (e editState) currentValue() string {
	switch e.index {
	case 0:
		return e.title
	case 1:
		return e.description
	case 2:
		return e.date
	case 3:
		return e.clock
	case 4:
		return e.priority
	case 5:
		return e.category
	default:
		return ""
	}
}

func (e *editState) setCurrentValue(v string) {
	switch e.index {
	case 0:
		e.title = v
	case 1:
		e.description = v
	case 2:
		e.date = v
	case 3:
		e.clock = v
	case 4:
		e.priority = v
	case 5:
		e.category = v
	}
}

func (m Model) priorityMarker(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return m.styles.high.Render("!")
	case task.PriorityMedium:
		return m.styles.medium.Render("·")
	case task.PriorityLow:
		return m.styles.low.Render("·")
	}
	return " "
}

var priorityChoices = []string{"all", "high", "medium", "low"}

var categoryChoices = []string{"all", "work", "personal", "study", "health", "shopping", "other"}

func nextStatus(s query.Status) query.Status {
	switch s {
	case query.StatusAll:
		return query.StatusActive
	case query.StatusActive:
		return query.StatusCompleted
	default:
		return query.StatusAll
	}
}

func nextScope(s query.DateScope) query.DateScope {
	switch s {
	case query.ScopeAll:
		return query.ScopeToday
	case query.ScopeToday:
		return query.ScopeWeek
	case query.ScopeWeek:
		return query.ScopeMonth
	default:
		return query.ScopeAll
	}
}

func nextTheme(cur string) string {
	if cur == "dark" {
		return "light"
	}
	return "dark"
}

func nextView(cur string) string {
	if cur == "compact" {
		return "list"
	}
	return "compact"
}

func nextChoice(cur string, choices []string) string {
	for i, c := range choices {
		if c == cur {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
