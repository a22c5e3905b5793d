package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"figurine-bot/cogs"
	"figurine-bot/config"
	"figurine-bot/economy"
	"figurine-bot/imagegen"
	"figurine-bot/presets"
	"figurine-bot/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
)

var botStatus = "starting"

func main() {
	// Local development reads secrets from .env; in deployment the
	// variables come from the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	// HTTP endpoint for platform health checks
	go startHealthServer()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}

	handler := buildHandler(cfg)

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Println("BOT_TOKEN not set - Discord bot will not connect")
		botStatus = "no_token"
		select {}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		onReady(s, event, handler)
	})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if handler.Route(s, i) {
			return
		}
		handler.RouteAdmin(s, i)
	})

	if err := session.Open(); err != nil {
		log.Fatalf("Failed to open Discord connection: %v", err)
	}
	defer session.Close()

	log.Println("Bot is now running. Press CTRL+C to exit.")
	botStatus = "running"

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Println("Gracefully shutting down...")
	botStatus = "shutting_down"
}

// buildHandler wires the stores, ledgers and services together. Each
// component gets its collaborators explicitly; nothing here is a
// package-level singleton.
func buildHandler(cfg *config.Config) *cogs.Handler {
	users := economy.NewLedger(storage.NewFileStore[int64](filepath.Join(cfg.DataDir, "user_counts.json")))
	groups := economy.NewLedger(storage.NewFileStore[int64](filepath.Join(cfg.DataDir, "group_counts.json")))
	tracker := economy.NewCheckinTracker(storage.NewFileStore[string](filepath.Join(cfg.DataDir, "user_checkin.json")))

	gate := economy.NewGatekeeper(economy.GateOptions{
		UserLimit:  cfg.Economy.EnableUserLimit,
		GroupLimit: cfg.Economy.EnableGroupLimit,
	}, users, groups)

	checkin := economy.NewCheckinService(economy.CheckinOptions{
		Enabled:         cfg.Economy.EnableCheckin,
		FixedReward:     cfg.Economy.CheckinFixedReward,
		RandomEnabled:   cfg.Economy.EnableRandomCheckin,
		RandomRewardMax: cfg.Economy.CheckinRandomRewardMax,
	}, tracker, users, nil)

	presetStore := presets.NewStore(storage.NewFileStore[string](filepath.Join(cfg.DataDir, "presets.json")))

	keys := cfg.API.GenericKeys
	if cfg.API.Mode == imagegen.ModeGemini {
		keys = cfg.API.GeminiKeys
	}
	proxyURL := ""
	if cfg.API.UseProxy {
		proxyURL = cfg.API.ProxyURL
	}
	images := imagegen.NewClient(imagegen.Options{
		Mode:       cfg.API.Mode,
		Model:      cfg.API.Model,
		GenericURL: cfg.API.GenericURL,
		GeminiURL:  cfg.API.GeminiURL,
		Keys:       keys,
		Timeout:    time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		ProxyURL:   proxyURL,
	})

	return &cogs.Handler{
		Config:  cfg,
		Gate:    gate,
		Checkin: checkin,
		Presets: presetStore,
		Images:  images,
	}
}

func onReady(s *discordgo.Session, event *discordgo.Ready, handler *cogs.Handler) {
	log.Printf("✅ Discord Bot logged in as %s (ID: %s)", event.User.Username, event.User.ID)
	botStatus = "online"

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: "AI image styles - /figurine",
				Type: discordgo.ActivityTypeGame,
			},
		},
		Status: "online",
	}); err != nil {
		log.Printf("Failed to update status: %v", err)
	}

	commands := append(handler.Commands(), handler.AdminCommands()...)
	for _, command := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", command); err != nil {
			log.Printf("Failed to create command %s: %v", command.Name, err)
		}
	}
	log.Printf("Registered %d slash commands", len(commands))
}

func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"figurine-bot","bot_status":"%s"}`, botStatus)
	})

	log.Printf("Health server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("Health server stopped: %v", err)
	}
}
