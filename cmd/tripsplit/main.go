// Command tripsplit records shared trip expenses and settles who owes what.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/mmynk/tripsplit/internal/cli"
	"github.com/mmynk/tripsplit/internal/config"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(subcommands.ExitUsageError))
	}

	app := cli.New(cfg, os.Stdin, os.Stdout, os.Stderr)
	app.SetFlags(flag.CommandLine)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, app)

	flag.Parse()
	app.SetupLogging()
	os.Exit(int(commander.Execute(context.Background())))
}
