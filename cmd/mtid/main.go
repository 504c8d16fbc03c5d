package main

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"

	"mtid/cmd/mtid/commands"
)

// Embedded dashboard shell
//
//go:embed all:frontend
var frontendFiles embed.FS

func main() {
	var frontendFS fs.FS
	if sub, err := fs.Sub(frontendFiles, "frontend"); err == nil {
		frontendFS = sub
	} else {
		slog.Warn("Frontend embedding failed", slog.String("error", err.Error()))
	}

	if err := commands.Execute(frontendFS); err != nil {
		os.Exit(1)
	}
}
