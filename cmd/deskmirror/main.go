package main

import "github.com/bryanchriswhite/DeskMirror/cmd/deskmirror/commands"

func main() {
	commands.Execute()
}
