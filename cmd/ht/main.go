package main

import (
	"fmt"
	"os"

	"github.com/HexmosTech/httpchain"
)

func main() {
	if err := httpchain.Main(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
