package main

import (
	"os"

	"creatorhub/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
