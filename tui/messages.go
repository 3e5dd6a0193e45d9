package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/checker"
	"github.com/lukemcguire/linkreaper/result"
)

// SessionEventMsg carries one checker event.
type SessionEventMsg struct {
	Event checker.Event
}

// SessionDoneMsg signals the check session has returned.
type SessionDoneMsg struct {
	Report  *result.Report
	Err     error
	Warning error // the report hook failed; the report is still usable
}

// DeletedMsg reports the outcome of deleting bookmarks.
type DeletedMsg struct {
	IDs []string // bookmarks actually removed
	Err error
}

// UndoneMsg reports the outcome of an undo.
type UndoneMsg struct {
	Restored []bookmark.Restored
	Err      error
}

// waitForEvent returns a tea.Cmd that reads one event from the session's
// channel. A closed channel yields no message; completion is reported by
// SessionDoneMsg.
func waitForEvent(ch <-chan checker.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return SessionEventMsg{Event: evt}
	}
}
