package main

import (
	"room-diff-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
