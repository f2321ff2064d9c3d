package main

import (
	"context"
	"os"

	"sapling/internal/ui/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
