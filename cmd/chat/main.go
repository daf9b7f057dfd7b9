package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"chat-relay/internal/client"
	"chat-relay/internal/config"
	"chat-relay/internal/relay"
	"chat-relay/internal/telemetry"
	"chat-relay/internal/tui"
)

func main() {
	cfg := config.Load()

	var apiBase, title string
	flag.StringVar(&apiBase, "api", cfg.PublicAPIBaseURL, "Base URL of the chat relay server")
	flag.StringVar(&title, "title", "AI Chat", "Window title")
	flag.Parse()

	// log to file only; stdout belongs to the TUI
	logger, logFile, err := telemetry.InitLogger(telemetry.LoggerOptions{
		Dir:  cfg.LogDir,
		File: "chat-client.log",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	c := client.New(apiBase, relay.WithLogger(logger))

	p := tea.NewProgram(tui.New(c, title), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
