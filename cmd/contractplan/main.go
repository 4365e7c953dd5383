package main

import (
	"os"

	"contract-plan-manager/cmd/contractplan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
