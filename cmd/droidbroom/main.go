package main

import (
	"os"

	"github.com/lu-zhengda/droidbroom/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
