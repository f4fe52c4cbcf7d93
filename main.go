package main

import (
	"github.com/yamakit/timekeeper/commands"
)

func main() {
	commands.Execute()
}
