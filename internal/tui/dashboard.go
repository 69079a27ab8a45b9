package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"golang.org/x/sync/errgroup"
)

var errQuit = errors.New("tui: quit")

const statusRefresh = time.Second

// Run draws the dashboard for sess until q is pressed or ctx ends.
// Keys: j/k move, Enter opens, r marks all read, q quits.
func Run(ctx context.Context, sess *service.Session) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("tui: init terminal: %w", err)
	}
	defer ui.Close()

	header := widgets.NewParagraph()
	header.Title = "Notifications"
	list := widgets.NewList()
	list.Title = "Inbox (j/k move, Enter open, r read all, q quit)"
	list.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorYellow)
	list.WrapText = false
	footer := widgets.NewParagraph()
	footer.Border = false

	layout := func() {
		w, h := ui.TerminalDimensions()
		header.SetRect(0, 0, w, 3)
		list.SetRect(0, 3, w, h-1)
		footer.SetRect(0, h-1, w, h)
	}
	layout()

	st := &state{status: sess.Conn.Status().String()}
	st.apply(sess.Store.Snapshot())

	draw := func() {
		header.Text = st.header()
		list.Rows = st.rows()
		list.SelectedRow = st.selected
		footer.Text = st.footer
		ui.Render(header, list, footer)
	}

	snapshots := newLatest()
	unsubscribe := sess.Store.Subscribe(snapshots.offer)
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	events := ui.PollEvents()

	// [RENDER_LOOP] Single goroutine owns the terminal
	g.Go(func() error {
		ticker := time.NewTicker(statusRefresh)
		defer ticker.Stop()
		draw()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()

			case snap := <-snapshots.ch:
				st.apply(snap)

			case <-ticker.C:
				st.status = sess.Conn.Status().String()

			case e := <-events:
				switch e.ID {
				case "q", "<C-c>":
					return errQuit
				case "j", "<Down>":
					st.move(1)
				case "k", "<Up>":
					st.move(-1)
				case "<Enter>":
					st.footer = open(gctx, sess, st)
				case "r":
					sess.Notifier.MarkAllRead(gctx)
					st.footer = "All notifications marked as read"
				case "<Resize>":
					layout()
					ui.Clear()
				}
			}
			draw()
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func open(ctx context.Context, sess *service.Session, st *state) string {
	m, ok := st.current()
	if !ok {
		return "Nothing selected"
	}
	dest, err := sess.Notifier.Open(ctx, m.ID)
	if err != nil {
		return fmt.Sprintf("Message %d: %v", m.ID, err)
	}
	return "Open " + dest
}
