package main

import (
	"flag"
	"os"

	"github.com/Makepad-fr/scaffold/internal/cli"
)

func main() {
	// Root flags (apply to every subcommand)
	groupPending := flag.Bool("group", false, "group todo output by pending/done")
	theme := flag.String("theme", "", "classic, neon or mono (default TADA_THEME)")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		os.Exit(2)
	}

	os.Exit(cli.Run(args, cli.Options{
		Group: *groupPending,
		Theme: *theme,
	}))
}
