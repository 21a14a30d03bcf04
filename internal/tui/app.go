package tui

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/termchat/termchat/internal/bus"
	"github.com/termchat/termchat/internal/mailbox"
	"github.com/termchat/termchat/internal/presence"
	"github.com/termchat/termchat/internal/rest"
	"github.com/termchat/termchat/internal/status"
	"github.com/termchat/termchat/internal/store"
	"github.com/termchat/termchat/internal/tui/views"
	"github.com/termchat/termchat/internal/typing"
	"github.com/termchat/termchat/internal/wire"
	"github.com/termchat/termchat/internal/ws"
	"go.uber.org/zap"
)

// App is the terminal UI shell. It renders the client stores and
// forwards user actions to the REST client and the connection
// manager; all realtime state flows in through bus events.
type App struct {
	app   *tview.Application
	pages *tview.Pages

	api      *rest.Client
	manager  *ws.Manager
	machine  *status.Machine
	mailbox  *mailbox.Store
	registry *mailbox.Registry
	roster   *presence.Tracker
	typing   *typing.Aggregator
	db       *store.DB
	bus      *bus.Bus
	logger   *zap.Logger

	login     *views.LoginView
	roomList  *views.RoomList
	msgView   *views.MessageView
	composer  *views.Composer
	statusBar *views.StatusBar

	mu         sync.Mutex
	self       wire.User
	activeRoom *wire.Room
	unread     map[int]int

	cancel  context.CancelFunc
	dispose func()
}

// NewApp builds the UI over the shared client components.
func NewApp(profileName string, api *rest.Client, manager *ws.Manager, machine *status.Machine, mb *mailbox.Store, reg *mailbox.Registry, roster *presence.Tracker, typ *typing.Aggregator, db *store.DB, b *bus.Bus, logger *zap.Logger) *App {
	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		api:       api,
		manager:   manager,
		machine:   machine,
		mailbox:   mb,
		registry:  reg,
		roster:    roster,
		typing:    typ,
		db:        db,
		bus:       b,
		logger:    logger,
		login:     views.NewLoginView(),
		roomList:  views.NewRoomList(),
		msgView:   views.NewMessageView(),
		composer:  views.NewComposer(),
		statusBar: views.NewStatusBar(),
		unread:    make(map[int]int),
	}

	a.statusBar.SetProfile(profileName)
	a.statusBar.SetState(string(machine.Current()))
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupLayout() {
	chat := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.composer, 1, 0, true)

	main := tview.NewFlex().
		AddItem(a.roomList, 28, 0, false).
		AddItem(chat, 0, 1, true)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(main, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage("main", root, true, false)
	a.pages.AddPage("login", a.login, true, false)
	a.app.SetRoot(a.pages, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			a.app.Stop()
			return nil
		}
		if event.Key() == tcell.KeyCtrlN {
			if name, _ := a.pages.GetFrontPage(); name == "main" {
				a.showCreateRoom()
				return nil
			}
		}
		if event.Key() == tcell.KeyTab {
			if name, _ := a.pages.GetFrontPage(); name == "main" {
				if a.roomList.HasFocus() {
					a.app.SetFocus(a.composer)
				} else {
					a.app.SetFocus(a.roomList)
				}
				return nil
			}
		}
		return event
	})
}

func (a *App) setupCallbacks() {
	a.login.SetOnLogin(func(email, password string) {
		go a.authenticate(func(ctx context.Context) (*rest.AuthResponse, error) {
			return a.api.Login(ctx, email, password)
		})
	})
	a.login.SetOnRegister(func(username, email, password string) {
		go a.authenticate(func(ctx context.Context) (*rest.AuthResponse, error) {
			return a.api.Register(ctx, username, email, password)
		})
	})

	a.roomList.SetSelectedFunc(func(row, col int) {
		if room := a.roomList.SelectedRoom(); room != nil {
			a.openRoom(*room)
		}
	})

	a.composer.SetOnChange(func() {
		a.mu.Lock()
		room := a.activeRoom
		a.mu.Unlock()
		if room != nil {
			a.typing.OnInput(room.ID)
		}
	})

	a.composer.SetOnSend(func(text string) {
		a.mu.Lock()
		room := a.activeRoom
		a.mu.Unlock()
		if room == nil {
			return
		}
		a.manager.Send(wire.SendMessage(room.ID, text))
		// A submitted message ends the typing burst immediately.
		a.typing.Flush(room.ID)
	})
}

// Run shows the appropriate first page and drives the UI until quit.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	// Unread badges: count messages for rooms that are not on screen.
	a.dispose = a.registry.Register(func(msg wire.Message) {
		a.mu.Lock()
		active := a.activeRoom
		if msg.UserID != a.self.ID && (active == nil || active.ID != msg.RoomID) {
			a.unread[msg.RoomID]++
		}
		a.mu.Unlock()
	})

	go a.consumeEvents(ctx)

	creds, err := a.db.Credentials()
	if err != nil {
		a.logger.Error("read credentials", zap.Error(err))
	}
	if creds == nil {
		a.pages.SwitchToPage("login")
		a.app.SetFocus(a.login)
	} else {
		a.mu.Lock()
		a.self = wire.User{ID: creds.UserID, Username: creds.Username}
		a.mu.Unlock()
		a.pages.SwitchToPage("main")
		go a.verifySession()
	}

	return a.app.Run()
}

// Stop tears the UI down. Safe to call from any goroutine.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.dispose != nil {
		a.dispose()
	}
	a.app.Stop()
}

func (a *App) authenticate(auth func(ctx context.Context) (*rest.AuthResponse, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := auth(ctx)
	if err != nil {
		a.app.QueueUpdateDraw(func() { a.login.SetStatus(err.Error()) })
		return
	}

	if err := a.db.SaveCredentials(&store.Credentials{
		Token:    resp.Token,
		UserID:   resp.User.ID,
		Username: resp.User.Username,
	}); err != nil {
		a.logger.Error("save credentials", zap.Error(err))
		a.app.QueueUpdateDraw(func() { a.login.SetStatus("could not store credentials") })
		return
	}

	a.mu.Lock()
	a.self = resp.User
	a.mu.Unlock()

	a.manager.Connect()
	a.loadRooms()

	a.app.QueueUpdateDraw(func() {
		a.pages.SwitchToPage("main")
		a.app.SetFocus(a.roomList)
	})
}

// verifySession checks the stored token against the server before
// reusing it. An expired or revoked token sends the user back to the
// login page instead of leaving a half-working session.
func (a *App) verifySession() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := a.api.CurrentUser(ctx)
	if err != nil {
		a.logger.Warn("stored session rejected", zap.Error(err))
		if dbErr := a.db.ClearCredentials(); dbErr != nil {
			a.logger.Error("clear credentials", zap.Error(dbErr))
		}
		a.app.QueueUpdateDraw(func() {
			a.login.SetStatus("session expired, sign in again")
			a.pages.SwitchToPage("login")
			a.app.SetFocus(a.login)
		})
		return
	}

	a.mu.Lock()
	a.self = *user
	a.mu.Unlock()
	a.loadRooms()
}

// loadRooms renders the cached directory immediately, then refreshes
// it from the server.
func (a *App) loadRooms() {
	if cached, err := a.db.Rooms(); err == nil && len(cached) > 0 {
		a.app.QueueUpdateDraw(func() { a.updateRoomList(cached) })
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rooms, err := a.api.Rooms(ctx)
	if err != nil {
		a.logger.Warn("list rooms", zap.Error(err))
		a.app.QueueUpdateDraw(func() { a.statusBar.SetFlash("room list unavailable") })
		return
	}
	if err := a.db.UpsertRooms(rooms); err != nil {
		a.logger.Warn("cache rooms", zap.Error(err))
	}
	a.app.QueueUpdateDraw(func() { a.updateRoomList(rooms) })
}

func (a *App) updateRoomList(rooms []wire.Room) {
	a.mu.Lock()
	unread := make(map[int]int, len(a.unread))
	for k, v := range a.unread {
		unread[k] = v
	}
	a.mu.Unlock()
	a.roomList.Update(rooms, unread)
}

func (a *App) openRoom(room wire.Room) {
	a.mu.Lock()
	prev := a.activeRoom
	a.activeRoom = &room
	delete(a.unread, room.ID)
	a.mu.Unlock()

	if prev != nil && prev.ID != room.ID {
		a.manager.Send(wire.LeaveRoom(prev.ID))
		a.typing.Flush(prev.ID)
	}
	a.manager.Send(wire.JoinRoom(room.ID))

	a.msgView.SetRoom(&room)
	a.app.SetFocus(a.composer)
	a.redrawMessages()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		history, err := a.api.Messages(ctx, room.ID, 50, 0)
		if err != nil {
			a.logger.Warn("load history", zap.Error(err), zap.Int("room_id", room.ID))
			a.app.QueueUpdateDraw(func() { a.statusBar.SetFlash("history unavailable") })
			return
		}
		a.mailbox.Hydrate(room.ID, history)
		a.app.QueueUpdateDraw(a.redrawMessages)
	}()
}

// showCreateRoom overlays a room creation form over the main page.
func (a *App) showCreateRoom() {
	form := tview.NewForm().
		AddInputField("Name", "", 32, nil, nil).
		AddInputField("Description", "", 48, nil, nil).
		AddCheckbox("Private", false, nil)
	form.SetBorder(true).SetTitle(" New Room ")

	dismiss := func() {
		a.pages.RemovePage("create")
		a.app.SetFocus(a.roomList)
	}

	form.AddButton("Create", func() {
		name := form.GetFormItemByLabel("Name").(*tview.InputField).GetText()
		desc := form.GetFormItemByLabel("Description").(*tview.InputField).GetText()
		private := form.GetFormItemByLabel("Private").(*tview.Checkbox).IsChecked()
		if name == "" {
			return
		}
		dismiss()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			room, err := a.api.CreateRoom(ctx, name, desc, private)
			if err != nil {
				a.logger.Warn("create room", zap.Error(err))
				a.app.QueueUpdateDraw(func() { a.statusBar.SetFlash("could not create room") })
				return
			}
			a.loadRooms()
			a.app.QueueUpdateDraw(func() { a.openRoom(*room) })
		}()
	})
	form.AddButton("Cancel", func() { dismiss() })

	// Center the form in a flex overlay.
	overlay := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(form, 13, 0, true).
			AddItem(nil, 0, 1, false), 56, 0, true).
		AddItem(nil, 0, 1, false)

	a.pages.AddPage("create", overlay, true, true)
	a.app.SetFocus(form)
}

// consumeEvents applies bus events to the screen.
func (a *App) consumeEvents(ctx context.Context) {
	ch, unsub := a.bus.Subscribe("", 256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			a.handleEvent(evt)
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindStatusChanged:
		change, ok := evt.Payload.(status.Change)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() { a.statusBar.SetState(string(change.To)) })

	case bus.KindMessage:
		a.app.QueueUpdateDraw(func() {
			a.redrawMessages()
			a.refreshRoomBadges()
		})

	case bus.KindPresenceUpdated:
		a.app.QueueUpdateDraw(func() { a.statusBar.SetOnline(a.roster.Count()) })

	case bus.KindTypingChanged:
		a.mu.Lock()
		active := a.activeRoom
		a.mu.Unlock()
		if roomID, ok := evt.Payload.(int); ok && active != nil && active.ID == roomID {
			a.app.QueueUpdateDraw(a.redrawMessages)
		}
	}
}

func (a *App) redrawMessages() {
	a.mu.Lock()
	room := a.activeRoom
	self := a.self
	a.mu.Unlock()
	if room == nil {
		return
	}
	a.msgView.Update(a.mailbox.Get(room.ID), self.ID, a.typing.Typists(room.ID))
}

func (a *App) refreshRoomBadges() {
	if rooms, err := a.db.Rooms(); err == nil {
		a.updateRoomList(rooms)
	}
}
