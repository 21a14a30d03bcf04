package views

import (
	"github.com/rivo/tview"
)

// LoginView is the authentication form shown when no credential is
// stored. It covers both login and registration.
type LoginView struct {
	*tview.Flex
	form       *tview.Form
	status     *tview.TextView
	registerOn bool
	onLogin    func(email, password string)
	onRegister func(username, email, password string)
}

// NewLoginView creates the auth form.
func NewLoginView() *LoginView {
	v := &LoginView{
		form:   tview.NewForm(),
		status: tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter),
	}
	v.buildForm()

	v.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(v.form, 0, 2, true).
		AddItem(v.status, 1, 0, false).
		AddItem(nil, 0, 1, false)

	return v
}

func (v *LoginView) buildForm() {
	v.form.Clear(true)
	v.form.SetBorder(true)

	if v.registerOn {
		v.form.SetTitle(" Register ")
		v.form.
			AddInputField("Username", "", 30, nil, nil).
			AddInputField("Email", "", 30, nil, nil).
			AddPasswordField("Password", "", 30, '*', nil).
			AddButton("Register", func() {
				username := v.field(0)
				email := v.field(1)
				password := v.field(2)
				if v.onRegister != nil && username != "" && email != "" && password != "" {
					v.onRegister(username, email, password)
				}
			}).
			AddButton("Have an account? Login", func() {
				v.registerOn = false
				v.buildForm()
			})
		return
	}

	v.form.SetTitle(" Login ")
	v.form.
		AddInputField("Email", "", 30, nil, nil).
		AddPasswordField("Password", "", 30, '*', nil).
		AddButton("Login", func() {
			email := v.field(0)
			password := v.field(1)
			if v.onLogin != nil && email != "" && password != "" {
				v.onLogin(email, password)
			}
		}).
		AddButton("New here? Register", func() {
			v.registerOn = true
			v.buildForm()
		})
}

func (v *LoginView) field(i int) string {
	return v.form.GetFormItem(i).(*tview.InputField).GetText()
}

// SetOnLogin sets the login callback.
func (v *LoginView) SetOnLogin(fn func(email, password string)) {
	v.onLogin = fn
}

// SetOnRegister sets the registration callback.
func (v *LoginView) SetOnRegister(fn func(username, email, password string)) {
	v.onRegister = fn
}

// SetStatus shows a status or error line under the form.
func (v *LoginView) SetStatus(msg string) {
	v.status.SetText("[red]" + tview.Escape(msg) + "[-]")
}
