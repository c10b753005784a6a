package main

import "github.com/mrgbiryu-cyber/maestro/cmd"

func main() {
	cmd.Execute()
}
