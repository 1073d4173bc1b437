package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mikeleppane/envx-sub000/internal/cli"
)

func main() {
	cmd := cli.New()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "envx:", err)
		os.Exit(1)
	}
}
