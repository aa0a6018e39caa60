package main

import (
	"os"

	"github.com/homewatt/homewatt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
