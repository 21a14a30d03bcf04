package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/termchat/termchat/internal/wire"
)

// MessageView renders the active room's message sequence plus the
// typing indicator line.
type MessageView struct {
	*tview.TextView
}

// NewMessageView creates the message pane.
func NewMessageView() *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)
	tv.SetBorder(true)

	return &MessageView{TextView: tv}
}

// SetRoom updates the pane title.
func (mv *MessageView) SetRoom(room *wire.Room) {
	if room == nil {
		mv.SetTitle("")
		return
	}
	title := fmt.Sprintf(" #%s ", room.Name)
	if room.Description != "" {
		title = fmt.Sprintf(" #%s - %s ", room.Name, room.Description)
	}
	mv.SetTitle(title)
}

// Update re-renders the message list. selfID marks the local user's
// own messages; typists is the room's current typing set.
func (mv *MessageView) Update(msgs []wire.Message, selfID int, typists []string) {
	mv.Clear()

	var b strings.Builder
	lastDate := ""
	for _, m := range msgs {
		date := formatDate(m.CreatedAt)
		if date != lastDate {
			fmt.Fprintf(&b, "[gray]--- %s ---[-]\n", date)
			lastDate = date
		}
		nameColor := "teal"
		if m.UserID == selfID {
			nameColor = "green"
		}
		fmt.Fprintf(&b, "[gray]%s[-] [%s]%s[-] %s\n",
			m.CreatedAt.Local().Format("15:04"),
			nameColor,
			tview.Escape(m.Username),
			tview.Escape(m.Content),
		)
	}

	if len(typists) > 0 {
		verb := "is"
		if len(typists) > 1 {
			verb = "are"
		}
		fmt.Fprintf(&b, "[yellow]%s %s typing...[-]\n", strings.Join(typists, ", "), verb)
	}

	_, _ = fmt.Fprint(mv, b.String())
	mv.ScrollToEnd()
}

func formatDate(ts time.Time) string {
	now := time.Now()
	t := ts.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "Today"
	}
	yesterday := now.AddDate(0, 0, -1)
	if t.Year() == yesterday.Year() && t.YearDay() == yesterday.YearDay() {
		return "Yesterday"
	}
	return t.Format("2006-01-02")
}
