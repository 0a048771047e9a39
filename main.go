package main

import (
	_ "go.uber.org/automaxprocs"

	"ticketera/cmd"
)

func main() {
	cmd.Start()
}
