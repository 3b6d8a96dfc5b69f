// Package main provides the paramtree CLI.
package main

import (
	"context"
	"os"
)

func main() {
	if err := NewCLI().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
