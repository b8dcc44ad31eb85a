package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

type ConsoleConfig struct {
	APIBaseURL string
	PlayerID   uuid.UUID
	SaveSlots  int
	Timeout    time.Duration
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	api := NewAPIClient(cfg.APIBaseURL, cfg.PlayerID, cfg.Timeout)
	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	if os.Getenv("PLAYER_ID") == "" {
		fmt.Printf("Playing as %s. Set PLAYER_ID to this value to return to these saves.\n", cfg.PlayerID)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*ConsoleConfig, error) {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		PlayerID:   uuid.New(),
		SaveSlots:  3,
		Timeout:    30 * time.Second,
	}

	if raw := os.Getenv("PLAYER_ID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("PLAYER_ID: %w", err)
		}
		cfg.PlayerID = id
	}

	if raw := os.Getenv("SAVE_SLOTS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("SAVE_SLOTS must be a positive integer, got %q", raw)
		}
		cfg.SaveSlots = n
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
