package main

import (
	"embed"
	"io/fs"
	"log"
	"os"

	"github.com/JonMunkholm/tabledef/cmd"
)

//go:embed web/*
var webFS embed.FS

func main() {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		log.Fatalf("Failed to load web assets: %v", err)
	}

	if err := cmd.Execute(sub); err != nil {
		os.Exit(1)
	}
}
