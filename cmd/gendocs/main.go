package main

import (
	"log"
	"os"

	"github.com/lu-zhengda/droidbroom/internal/cli"
	"github.com/spf13/cobra/doc"
)

func main() {
	manDir := "./docs/man"
	mdDir := "./docs/cli"
	for _, dir := range []string{manDir, mdDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	root := cli.RootCmd()
	root.DisableAutoGenTag = true

	header := &doc.GenManHeader{
		Title:   "DROIDBROOM",
		Section: "1",
		Source:  "droidbroom",
	}
	if err := doc.GenManTree(root, header, manDir); err != nil {
		log.Fatal(err)
	}
	if err := doc.GenMarkdownTree(root, mdDir); err != nil {
		log.Fatal(err)
	}
}
