// Package tui provides the Bubble Tea terminal UI for linkreaper: live
// progress while bookmarks are checked, then a paged review list where
// bookmarks can be filtered, selected, deleted and restored.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/checker"
	"github.com/lukemcguire/linkreaper/result"
)

type phase int

const (
	phaseChecking phase = iota
	phaseReview
	phaseConfirm
)

// Model is the Bubble Tea model for the bookmark check TUI.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session *checker.Session
	editor  *bookmark.Editor
	events  chan checker.Event
	onDone  ReportHook

	records  []*bookmark.Record
	byID     map[string]*bookmark.Record
	statuses map[string]bookmark.Status // as reported by events; never read from records
	deleted  map[string]bool

	spinner  spinner.Model
	progress progress.Model

	phase    phase
	checked  int
	total    int
	current  []string
	stopping bool
	quitting bool
	report   *result.Report
	err      error
	notice   string
	noticeOK bool
	width    int

	// review list
	filter      int // index into reviewFilters
	folder      int // 0 = all folders, otherwise folderIDs()[folder-1]
	page        int
	cursor      int
	selected    map[string]bool
	pending     []*bookmark.Record // awaiting delete confirmation
	pendingKind string
}

// ReportHook runs on the finished report before it is shown, e.g. to
// record history and fill in failure streaks.
type ReportHook func(ctx context.Context, rep *result.Report) error

// NewModel creates a TUI model that runs session over records and edits
// the bookmark source through editor.
func NewModel(ctx context.Context, cancel context.CancelFunc, session *checker.Session, editor *bookmark.Editor, records []*bookmark.Record) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	byID := make(map[string]*bookmark.Record, len(records))
	statuses := make(map[string]bookmark.Status, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
		statuses[rec.ID] = rec.Status
	}

	return Model{
		ctx:      ctx,
		cancel:   cancel,
		session:  session,
		editor:   editor,
		events:   make(chan checker.Event, 16),
		records:  records,
		byID:     byID,
		statuses: statuses,
		deleted:  make(map[string]bool),
		selected: make(map[string]bool),
		page:     1,
		spinner:  spin,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		total:    session.Len(),
	}
}

// WithReportHook returns a copy of m that calls hook when the session ends.
func (m Model) WithReportHook(hook ReportHook) Model {
	m.onDone = hook
	return m
}

// Init starts the spinner, the session, and the event listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSession(), waitForEvent(m.events))
}

// startSession returns a tea.Cmd that runs the session and sends SessionDoneMsg.
func (m Model) startSession() tea.Cmd {
	return func() tea.Msg {
		rep, err := m.session.Run(m.ctx, m.events)
		close(m.events)
		if err != nil {
			return SessionDoneMsg{Err: fmt.Errorf("check session: %w", err)}
		}
		var warning error
		if m.onDone != nil {
			warning = m.onDone(context.WithoutCancel(m.ctx), rep)
		}
		return SessionDoneMsg{Report: rep, Warning: warning}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(msg.Width-4, 80))

	case SessionEventMsg:
		// Events read after the session finished are already in the report.
		if m.phase != phaseChecking {
			return m, nil
		}
		m.applyEvent(msg.Event)
		return m, waitForEvent(m.events)

	case SessionDoneMsg:
		m.drainEvents()
		m.phase = phaseReview
		m.report = msg.Report
		m.err = msg.Err
		m.current = nil
		if msg.Warning != nil {
			m.setNotice(msg.Warning.Error(), false)
		}
		if msg.Report != nil {
			for _, res := range msg.Report.Results {
				m.statuses[res.ID] = res.Status
			}
		}
		m.clampList()

	case DeletedMsg:
		for _, id := range msg.IDs {
			m.deleted[id] = true
			delete(m.selected, id)
		}
		m.clampList()
		if msg.Err != nil {
			m.setNotice(fmt.Sprintf("Deleted %d bookmarks, then failed: %v", len(msg.IDs), msg.Err), false)
		} else {
			m.setNotice(fmt.Sprintf("Deleted %d bookmarks. Press u to undo.", len(msg.IDs)), true)
		}

	case UndoneMsg:
		for _, r := range msg.Restored {
			m.reassign(r.OldID, r.NewID)
		}
		if msg.Err != nil {
			m.setNotice(fmt.Sprintf("Restored %d bookmarks, then failed: %v", len(msg.Restored), msg.Err), false)
		} else {
			m.setNotice(fmt.Sprintf("Restored %d bookmarks.", len(msg.Restored)), true)
		}
		m.clampList()

	case spinner.TickMsg:
		if m.phase != phaseChecking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		m.cancel()
		return m, tea.Quit
	}

	switch m.phase {
	case phaseChecking:
		switch key {
		case "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		case "s":
			if !m.stopping {
				m.stopping = true
				m.session.Stop()
				m.setNotice("Stopping after the current batch...", true)
			}
		}

	case phaseReview:
		return m.handleReviewKey(key)

	case phaseConfirm:
		switch key {
		case "y", "Y":
			targets := m.pending
			m.phase, m.pending = phaseReview, nil
			return m, m.deleteCmd(targets)
		case "n", "N", "esc":
			m.phase, m.pending = phaseReview, nil
			m.setNotice("Delete cancelled.", true)
		}
	}
	return m, nil
}

// drainEvents applies the events still buffered when the session returned.
func (m *Model) drainEvents() {
	for {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return
			}
			m.applyEvent(ev)
		default:
			return
		}
	}
}

func (m *Model) applyEvent(ev checker.Event) {
	switch ev.Kind {
	case checker.EventBatchStarted:
		m.current = m.current[:0]
		for _, id := range ev.IDs {
			m.statuses[id] = bookmark.Checking
			if rec, ok := m.byID[id]; ok {
				m.current = append(m.current, rec.DisplayTitle()+"  "+rec.URL)
			}
		}
	case checker.EventProgress:
		for id, res := range ev.Results {
			m.statuses[id] = res.Status
		}
		m.current = nil
	}
	m.checked = ev.Checked
	m.total = ev.Total
}

// reassign moves a restored bookmark from its deleted ID to the ID the
// source gave it on recreation. The session has ended by then, so the
// record is no longer shared.
func (m *Model) reassign(oldID, newID string) {
	delete(m.deleted, oldID)
	rec, ok := m.byID[oldID]
	if !ok {
		return
	}
	rec.ID = newID
	delete(m.byID, oldID)
	m.byID[newID] = rec
	m.statuses[newID] = m.statuses[oldID]
	delete(m.statuses, oldID)
	if m.selected[oldID] {
		delete(m.selected, oldID)
		m.selected[newID] = true
	}
	if m.report == nil {
		return
	}
	for i := range m.report.Results {
		if m.report.Results[i].ID == oldID {
			m.report.Results[i].ID = newID
		}
	}
}

func (m *Model) setNotice(text string, ok bool) {
	m.notice = text
	m.noticeOK = ok
}

// deletable returns the invalid bookmarks not yet deleted.
func (m Model) deletable() []*bookmark.Record {
	var out []*bookmark.Record
	for _, rec := range m.records {
		if m.statuses[rec.ID] == bookmark.Invalid && !m.deleted[rec.ID] {
			out = append(out, rec)
		}
	}
	return out
}

func (m Model) deleteCmd(records []*bookmark.Record) tea.Cmd {
	editor, ctx := m.editor, context.WithoutCancel(m.ctx)
	return func() tea.Msg {
		if editor == nil {
			return DeletedMsg{Err: fmt.Errorf("no bookmark source to edit")}
		}
		n, err := editor.Delete(ctx, records)
		ids := make([]string, 0, n)
		for _, rec := range records[:n] {
			ids = append(ids, rec.ID)
		}
		return DeletedMsg{IDs: ids, Err: err}
	}
}

func (m Model) undoCmd() tea.Cmd {
	editor, ctx := m.editor, context.WithoutCancel(m.ctx)
	return func() tea.Msg {
		restored, err := editor.Undo(ctx)
		return UndoneMsg{Restored: restored, Err: err}
	}
}

// counts tallies the current status of every non-deleted bookmark.
func (m Model) counts() [bookmark.StatusCount]int {
	var counts [bookmark.StatusCount]int
	for _, rec := range m.records {
		if m.deleted[rec.ID] {
			continue
		}
		if s := m.statuses[rec.ID]; int(s) < len(counts) {
			counts[s]++
		}
	}
	return counts
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.quitting {
		if m.phase == phaseChecking || m.err != nil {
			return ""
		}
		return RenderSummary(m.report, m.deleted)
	}
	if m.phase != phaseChecking && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	var b strings.Builder
	if m.phase == phaseChecking {
		b.WriteString(fmt.Sprintf("%s Checking bookmarks... %d/%d\n", m.spinner.View(), m.checked, m.total))
		b.WriteString(m.progress.ViewAs(fraction(m.checked, m.total)))
		b.WriteString("\n")
		b.WriteString(renderCounts(m.counts()))
		b.WriteString("\n")
		for _, u := range m.current {
			b.WriteString(dimStyle.Render("  " + u))
			b.WriteString("\n")
		}
		b.WriteString(m.renderNotice())
		b.WriteString(dimStyle.Render("s stop • q quit"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.renderReview())
	b.WriteString("\n")
	if m.phase == phaseConfirm {
		b.WriteString(promptStyle.Render(fmt.Sprintf("Delete %d %s bookmarks? (y/n)", len(m.pending), m.pendingKind)))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.renderNotice())
	b.WriteString(dimStyle.Render("↑/↓ move • space select • a select page • ←/→ page • f filter • g folder"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("d delete selected (or all invalid) • u undo • q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	style := successStyle
	if !m.noticeOK {
		style = errorStyle
	}
	return style.Render(m.notice) + "\n"
}

// fraction is the progress bar position, 0 for an empty session.
func fraction(done, total int) float64 {
	return checker.Event{Checked: done, Total: total}.Percent() / 100
}

// HasBrokenLinks reports whether the session found any invalid or timed-out
// bookmark that was not deleted.
func (m Model) HasBrokenLinks() bool {
	if m.report == nil {
		return false
	}
	for _, res := range m.report.Broken() {
		if !m.deleted[res.ID] {
			return true
		}
	}
	return false
}

// GetReport returns the session report, or nil before the session ends.
func (m Model) GetReport() *result.Report {
	return m.report
}
