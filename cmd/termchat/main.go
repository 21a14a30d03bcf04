package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/termchat/termchat/internal/app"
	"github.com/termchat/termchat/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fx.New(
		app.Module(app.Params{Profile: profileName}),
		fx.NopLogger,
	).Run()
}
