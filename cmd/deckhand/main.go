package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/deckhand-sh/deckhand/cmd/deckhand/commands"
)

const (
	cmdName = "deckhand"

	shortDesc = "Deploy docker-compose apps to remote hosts."
	longDesc  = `Deckhand deploys docker-compose apps to remote hosts over SSH.

A manifest describes the apps to run and the host to run them on. Apps can
extend base manifests from local paths or git repositories, layering compose
files, env files, and assets. Deckhand resolves the manifest, pushes each
app's files to the host, and drives docker compose there.
`
)

func main() {
	cmd := commands.NewRootCmd(cmdName, shortDesc, longDesc)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimLeft(err.Error(), "\n"))
		os.Exit(1)
	}
}
