// Package tui renders the notification surface in a terminal.
package tui

import (
	"fmt"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

// state is the terminal-independent part of the dashboard.
type state struct {
	version  uint64
	badge    int
	board    int
	messages []model.Message
	selected int
	status   string
	footer   string
}

// apply renders snap unless a newer version is already on screen.
func (s *state) apply(snap model.Snapshot) {
	if snap.Version < s.version {
		return
	}
	s.version = snap.Version

	var current int64
	if m, ok := s.current(); ok {
		current = m.ID
	}

	s.badge = snap.DefaultUnread
	s.board = snap.BoardUnread
	s.messages = snap.Filter(model.QueueDefault)

	// Keep the cursor on the same message when new ones are prepended.
	s.selected = 0
	for i := range s.messages {
		if s.messages[i].ID == current {
			s.selected = i
			break
		}
	}
}

func (s *state) move(delta int) {
	if len(s.messages) == 0 {
		s.selected = 0
		return
	}
	s.selected = min(max(s.selected+delta, 0), len(s.messages)-1)
}

func (s *state) current() (model.Message, bool) {
	if s.selected < 0 || s.selected >= len(s.messages) {
		return model.Message{}, false
	}
	return s.messages[s.selected], true
}

func (s *state) header() string {
	return fmt.Sprintf("Unread: %d   Board: %d   Link: %s", s.badge, s.board, s.status)
}

func (s *state) rows() []string {
	rows := make([]string, len(s.messages))
	for i, m := range s.messages {
		rows[i] = formatRow(m)
	}
	return rows
}

func formatRow(m model.Message) string {
	mark := "*"
	if m.IsViewed {
		mark = " "
	}
	title := m.Title
	if title == "" {
		title = string(m.Type)
	}
	return fmt.Sprintf("%s [%d] %s: %s", mark, m.ID, title, m.Body)
}

// latest is a one-slot mailbox that always holds the newest snapshot offered.
type latest struct {
	ch chan model.Snapshot
}

func newLatest() *latest {
	return &latest{ch: make(chan model.Snapshot, 1)}
}

// offer replaces any pending snapshot with snap. Never blocks.
func (l *latest) offer(snap model.Snapshot) {
	for {
		select {
		case l.ch <- snap:
			return
		default:
			select {
			case <-l.ch:
			default:
			}
		}
	}
}
