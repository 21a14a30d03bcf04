package views

import (
	"fmt"

	"github.com/rivo/tview"
)

// StatusBar displays the profile, connection state and online count.
type StatusBar struct {
	*tview.TextView
	profile string
	state   string
	online  int
	flash   string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetState updates the connection state display.
func (sb *StatusBar) SetState(state string) {
	sb.state = state
	sb.render()
}

// SetOnline updates the online-user count.
func (sb *StatusBar) SetOnline(n int) {
	sb.online = n
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	stateColor := "red"
	if sb.state == "CONNECTED" {
		stateColor = "green"
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-] | %d online", sb.profile, stateColor, sb.state, sb.online)
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
