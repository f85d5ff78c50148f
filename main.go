// ABOUTME: Entry point for the soundscape server
// ABOUTME: Parses CLI flags, loads configuration and runs the engine with its TUI
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sendspin/soundscape-go/internal/app"
	"github.com/Sendspin/soundscape-go/internal/config"
	"github.com/Sendspin/soundscape-go/internal/ui"
	"github.com/Sendspin/soundscape-go/internal/version"
)

var (
	configPath = flag.String("config", "soundscape.yaml", "Configuration file (YAML)")
	logFile    = flag.String("log-file", "soundscape.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	port       = flag.Int("port", 0, "Control server port (overrides config)")
	name       = flag.String("name", "", "Server friendly name (default: hostname-soundscape)")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	backend    = flag.String("backend", "", "Audio backend: oto, portaudio or null")
	assetBase  = flag.String("assets", "", "Sound directory or http(s) URL")
	seed       = flag.Int64("seed", 0, "Seed for accent layer randomness (0 = unseeded)")
	autostart  = flag.Bool("autostart", false, "Start audio immediately without waiting for a keypress")
	biomeName  = flag.String("biome", "", "Startup biome (ocean, forest, desert, mountain, city, plains, tundra)")
	timeOfDay  = flag.String("time", "", "Startup time of day (morning, day, evening, night); empty follows the clock")
	weatherArg = flag.String("weather", "", "Startup weather preset (clear, rain, storm, snow, fog, windy)")
	lat        = flag.Float64("lat", 0, "Latitude for biome lookup")
	lon        = flag.Float64("lon", 0, "Longitude for biome lookup")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		multiWriter := io.MultiWriter(os.Stdout, f)
		log.SetOutput(multiWriter)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	log.Printf("Starting %s: %s on port %d", version.String(), cfg.Server.Name, cfg.Server.Port)
	log.Printf("Logging to: %s", *logFile)

	application, err := app.New(cfg, app.Options{})
	if err != nil {
		log.Fatalf("Failed to create soundscape: %v", err)
	}

	go func() {
		if err := application.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	if *autostart {
		if err := application.Initialize(); err != nil {
			log.Fatalf("Failed to start audio: %v", err)
		}
	}

	if useTUI {
		runTUI(application, cfg)
	} else {
		log.Printf("Press Ctrl-C to stop")
		waitForSignal()
	}

	application.Stop()
}

// applyFlags overrides configuration values named on the command line
func applyFlags(cfg *config.Config) {
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *name != "" {
		cfg.Server.Name = *name
	} else if cfg.Server.Name == version.Product {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		cfg.Server.Name = fmt.Sprintf("%s-soundscape", hostname)
	}
	if *noMDNS {
		cfg.Server.MDNS = false
	}
	if *backend != "" {
		cfg.Audio.Backend = *backend
	}
	if *assetBase != "" {
		cfg.Assets.Base = *assetBase
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *biomeName != "" {
		cfg.Scene.Biome = *biomeName
	}
	if *timeOfDay != "" {
		cfg.Scene.TimeOfDay = *timeOfDay
	}
	if *weatherArg != "" {
		cfg.Scene.Weather = *weatherArg
	}
	if *lat != 0 || *lon != 0 {
		cfg.Scene.Lat = *lat
		cfg.Scene.Lon = *lon
	}
}

func runTUI(application *app.App, cfg *config.Config) {
	controls := ui.NewControls()
	prog := ui.Run(controls, ui.Selection{
		Biome:     cfg.Scene.Biome,
		TimeOfDay: cfg.Scene.TimeOfDay,
		Weather:   cfg.Scene.Weather,
		Volume:    cfg.Audio.MasterVolume,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := prog.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case act := <-controls.Actions:
			if err := application.HandleAction(act); err != nil {
				log.Printf("Action failed: %v", err)
			}
			prog.Send(application.Status())
		case <-ticker.C:
			prog.Send(application.Status())
		case <-controls.Quit:
			log.Printf("Quit requested")
			prog.Quit()
			<-done
			return
		case sig := <-sigChan:
			log.Printf("Received %v signal, shutting down gracefully...", sig)
			prog.Quit()
			<-done
			return
		case <-done:
			return
		}
	}
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received %v signal, shutting down gracefully...", sig)
}
