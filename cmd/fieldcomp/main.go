package main

import (
	"os"

	"github.com/solatis/fieldcomp/cmd/fieldcomp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
