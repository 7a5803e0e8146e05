package main

import (
	"context"
	"fmt"
	"os"

	"github.com/npezzotti/mob-vibe/internal/commands"
	"github.com/npezzotti/mob-vibe/internal/styles"
)

// Populated at build time via -ldflags.
var version = "dev"

func main() {
	app := commands.New(version)

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
