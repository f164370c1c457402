package main

import "go.vocdoni.io/tokenvote/cmd/electioncli/commands"

func main() {
	commands.Execute()
}
