package main

import (
	"fmt"
	"os"

	"github.com/thiagokokada/gitstate/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "gitstate: %v\n", err)
		os.Exit(1)
	}
}
