package views

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/termchat/termchat/internal/wire"
)

// RoomList is the sidebar room table.
type RoomList struct {
	*tview.Table
	rooms      []wire.Room
	selectedFn func() (int, int)
}

// NewRoomList creates the room list table.
func NewRoomList() *RoomList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Rooms ")

	rl := &RoomList{Table: table}
	rl.selectedFn = table.GetSelection
	return rl
}

// Update refreshes the list. unread holds per-room unread counts.
func (rl *RoomList) Update(rooms []wire.Room, unread map[int]int) {
	rl.rooms = rooms
	rl.Clear()

	rl.SetCell(0, 0, tview.NewTableCell(" Room").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, room := range rooms {
		name := " # " + room.Name
		if n := unread[room.ID]; n > 0 {
			name = fmt.Sprintf(" # %s [red](%d)[-]", room.Name, n)
		}
		rl.SetCell(i+1, 0, tview.NewTableCell(name).SetExpansion(1))
	}
}

// SelectedRoom returns the currently selected room, or nil.
func (rl *RoomList) SelectedRoom() *wire.Room {
	row, _ := rl.selectedFn()
	idx := row - 1 // header row
	if idx >= 0 && idx < len(rl.rooms) {
		return &rl.rooms[idx]
	}
	return nil
}
