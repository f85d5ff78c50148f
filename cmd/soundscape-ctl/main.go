// ABOUTME: Command line controller for a running soundscape server
// ABOUTME: Finds the server over mDNS or -server and sends one command
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sendspin/soundscape-go/internal/client"
	"github.com/Sendspin/soundscape-go/internal/discovery"
	"github.com/Sendspin/soundscape-go/internal/protocol"
	"github.com/Sendspin/soundscape-go/internal/weather"
)

var (
	serverAddr = flag.String("server", "", "Manual server address host:port (skip mDNS)")
	timeout    = flag.Duration("timeout", 10*time.Second, "Discovery and command timeout")
	verbose    = flag.Bool("v", false, "Log connection details to stderr")
)

const usage = `Usage: soundscape-ctl [flags] <command> [args]

Commands:
  start                         start audio output
  set <biome> [time] [weather]  set a soundscape (weather is a preset name)
  update <lat> <lon> [weather]  resolve a soundscape from coordinates
  stop [fade]                   fade out every sound (e.g. 3s)
  volume <0-1>                  set master volume
  mute                          toggle mute
  state                         print server state
  watch                         print state broadcasts until interrupted
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	addr, err := findServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	c := client.NewClient(client.Config{ServerAddr: addr})
	if err := c.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := run(c, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func findServer() (string, error) {
	if *serverAddr != "" {
		return *serverAddr, nil
	}

	disc := discovery.NewManager(discovery.Config{ServiceName: "soundscape-ctl"})
	if err := disc.Browse(); err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}
	defer disc.Stop()

	select {
	case server := <-disc.Servers():
		log.Printf("Discovered %s at %s", server.Name, server.Addr())
		return server.Addr(), nil
	case <-time.After(*timeout):
		return "", fmt.Errorf("no soundscape server found after %v", *timeout)
	}
}

func run(c *client.Client, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cmd, rest := args[0], args[1:]

	var (
		state protocol.ServerState
		err   error
	)

	switch cmd {
	case "start":
		state, err = c.Initialize(ctx)
	case "set":
		var req protocol.SetSoundscape
		req, err = parseSet(rest)
		if err != nil {
			return err
		}
		state, err = c.SetSoundscape(ctx, req)
	case "update":
		var req protocol.UpdateSoundscape
		req, err = parseUpdate(rest)
		if err != nil {
			return err
		}
		state, err = c.UpdateSoundscape(ctx, req)
	case "stop":
		fade := time.Duration(0)
		if len(rest) > 0 {
			fade, err = time.ParseDuration(rest[0])
			if err != nil {
				return fmt.Errorf("invalid fade: %w", err)
			}
		}
		state, err = c.StopSoundscape(ctx, fade)
	case "volume":
		if len(rest) != 1 {
			return fmt.Errorf("volume needs one argument")
		}
		var v float64
		v, err = strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return fmt.Errorf("invalid volume: %w", err)
		}
		state, err = c.SetVolume(ctx, v)
	case "mute":
		state, err = c.ToggleMute(ctx)
	case "state":
		state, err = c.State(ctx)
	case "watch":
		return watch(c)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		return err
	}
	printState(os.Stdout, state)
	return nil
}

func parseSet(args []string) (protocol.SetSoundscape, error) {
	if len(args) < 1 || len(args) > 3 {
		return protocol.SetSoundscape{}, fmt.Errorf("set needs <biome> [time] [weather]")
	}

	req := protocol.SetSoundscape{Biome: args[0]}
	if len(args) > 1 {
		req.TimeOfDay = args[1]
	}

	name := "clear"
	if len(args) > 2 {
		name = args[2]
	}
	p, err := weather.LookupPreset(name)
	if err != nil {
		return protocol.SetSoundscape{}, err
	}
	req.WeatherCode = p.Code
	req.WindKph = p.WindKph
	req.Humidity = p.Humidity
	return req, nil
}

func parseUpdate(args []string) (protocol.UpdateSoundscape, error) {
	if len(args) < 2 || len(args) > 3 {
		return protocol.UpdateSoundscape{}, fmt.Errorf("update needs <lat> <lon> [weather]")
	}

	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return protocol.UpdateSoundscape{}, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return protocol.UpdateSoundscape{}, fmt.Errorf("invalid longitude: %w", err)
	}

	name := "clear"
	if len(args) > 2 {
		name = args[2]
	}
	p, err := weather.LookupPreset(name)
	if err != nil {
		return protocol.UpdateSoundscape{}, err
	}

	snap := p.Snapshot(time.Now())
	return protocol.UpdateSoundscape{
		WeatherCode: snap.Code,
		WindKph:     snap.WindKph,
		Humidity:    snap.Humidity,
		LocalTime:   snap.LocalTime,
		Lat:         lat,
		Lon:         lon,
	}, nil
}

func watch(c *client.Client) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !c.IsConnected() {
				return fmt.Errorf("connection closed")
			}
		case state, ok := <-c.States:
			if !ok {
				return nil
			}
			printState(os.Stdout, state)
		case e, ok := <-c.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "server error %s: %s\n", e.Code, e.Message)
		}
	}
}

func printState(w io.Writer, s protocol.ServerState) {
	audio := "stopped"
	if s.Initialized {
		audio = "running"
	}
	if s.Muted {
		audio += " (muted)"
	}
	fmt.Fprintf(w, "audio:   %s, volume %.0f%%\n", audio, s.MasterVolume*100)

	if s.Scene != nil {
		fmt.Fprintf(w, "scene:   %s / %s, code %d, wind %.0f kph, humidity %.0f%%\n",
			s.Scene.Biome, s.Scene.TimeOfDay, s.Scene.WeatherCode, s.Scene.WindKph, s.Scene.Humidity)
		for _, l := range s.Scene.Layers {
			fmt.Fprintf(w, "  %-16s %-8s %.2f\n", l.ID, l.Category, l.Volume)
		}
	}
	if len(s.ActiveSounds) > 0 {
		fmt.Fprintf(w, "playing: %s\n", strings.Join(s.ActiveSounds, ", "))
	}
	if len(s.FailedLoads) > 0 {
		fmt.Fprintf(w, "failed:  %s\n", strings.Join(s.FailedLoads, ", "))
	}
}
