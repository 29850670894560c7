package main

import "github.com/Meghavibansod/HealthLedger/internal/cli"

func main() {
	cli.Execute()
}
