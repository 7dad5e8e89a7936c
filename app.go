package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/rovermesh/rover"
)

// maxTelemetryLine bounds one replayed telemetry record; frames are
// base64 images so lines are large.
const maxTelemetryLine = 32 << 20

// App holds the running mission and its transports.
type App struct {
	Config          *rover.Config
	Rover           *rover.Rover
	TelemetryClient *rover.TelemetryClient
	Publisher       *rover.CommandPublisher

	ConfigFile string
	MapCache   string
	ReplayFile string
	OutputFile string
	HttpPort   int
	MqttMode   bool
	HttpMode   bool
	Debug      bool
}

// NewApp creates an App with no mission loaded.
func NewApp() *App {
	return &App{}
}

// ApplyOptions copies CLI options onto the App.
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.MapCache = opts.MapCache
	a.ReplayFile = opts.ReplayFile
	a.OutputFile = opts.OutputFile
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
	a.Debug = opts.Debug
}

// loadConfig reads the config file. A missing default config.yaml falls
// back to built-in defaults; an explicitly named file must exist.
func (a *App) loadConfig() (*rover.Config, error) {
	var cfg *rover.Config
	if _, err := os.Stat(a.ConfigFile); a.ConfigFile == "config.yaml" && errors.Is(err, os.ErrNotExist) {
		log.Printf("No %s found, using defaults", a.ConfigFile)
		cfg = rover.DefaultConfig()
	} else {
		cfg, err = rover.LoadConfig(a.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if a.Debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// startMission loads config, creates the rover and restores the map cache.
func (a *App) startMission() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	r, err := rover.NewRover(cfg)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Rover = r

	if a.MapCache == "" {
		return nil
	}
	if _, err := os.Stat(a.MapCache); errors.Is(err, os.ErrNotExist) {
		log.Printf("No map cache at %s, starting with an empty map", a.MapCache)
		return nil
	}
	m, err := rover.LoadWorldMap(a.MapCache)
	if err != nil {
		return fmt.Errorf("loading map cache: %w", err)
	}
	if err := r.RestoreWorldMap(m); err != nil {
		return fmt.Errorf("restoring map cache: %w", err)
	}
	log.Printf("Restored world map from %s (%d cells filled)", a.MapCache, m.FillCount())
	return nil
}

// saveMapCache persists the world map if a cache path is configured.
func (a *App) saveMapCache() {
	if a.MapCache == "" || a.Rover == nil {
		return
	}
	if err := rover.SaveWorldMap(a.Rover.WorldMap(), a.MapCache); err != nil {
		log.Printf("Error saving map cache: %v", err)
		return
	}
	log.Printf("Saved world map to %s", a.MapCache)
}

// RunReplay feeds every record of a JSON-lines telemetry log through the
// controller, then writes the world map image and the map cache.
func (a *App) RunReplay() error {
	if err := a.startMission(); err != nil {
		return err
	}

	f, err := os.Open(a.ReplayFile)
	if err != nil {
		return fmt.Errorf("opening replay: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), maxTelemetryLine)

	var ticks, rejected int
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		t, err := rover.DecodeTelemetry(data)
		if err != nil {
			log.Printf("[TICK] line %d: %v", line, err)
			rejected++
			continue
		}
		if _, err := a.Rover.Step(t); err != nil {
			log.Printf("[TICK] line %d: %v", line, err)
			rejected++
			continue
		}
		ticks++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading replay: %w", err)
	}

	if a.OutputFile != "" {
		if err := a.writeWorldMap(a.OutputFile); err != nil {
			return err
		}
	}
	a.saveMapCache()

	snap := a.Rover.Snapshot()
	fmt.Printf("Replayed %d ticks (%d rejected)\n", ticks, rejected)
	fmt.Printf("  Mode:      %s\n", snap.Navigation.Mode)
	fmt.Printf("  Map fill:  %d cells\n", snap.MapFill)
	fmt.Printf("  Samples:   %d found, %d collected, %d remaining\n",
		snap.SamplesFound, snap.SamplesCollected, snap.SamplesRemaining)
	if a.OutputFile != "" {
		fmt.Printf("  Map image: %s\n", a.OutputFile)
	}
	return nil
}

// writeWorldMap renders the current map as PNG, or SVG when path ends in
// .svg.
func (a *App) writeWorldMap(path string) error {
	view := mapView(a.Rover)
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		return rover.NewVectorRenderer(view).RenderToSVG(f)
	}
	return rover.SavePNG(rover.RenderWorldMap(view, 3), path)
}

// handleTelemetry runs one tick for a record received over MQTT and
// publishes the resulting command and status.
func (a *App) handleTelemetry(t *rover.Telemetry, err error) {
	if err != nil {
		log.Printf("[TICK] Dropping telemetry: %v", err)
		return
	}
	res, err := a.Rover.Step(t)
	if err != nil {
		log.Printf("[TICK] Rejected telemetry: %v", err)
		return
	}
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishCommand(a.Rover.MissionID(), res); err != nil {
		log.Printf("[MQTT] Error publishing command: %v", err)
	}
	if err := a.Publisher.PublishStatus(a.Rover.Snapshot()); err != nil {
		log.Printf("[MQTT] Error publishing status: %v", err)
	}
}

// RunService connects to the simulator and/or serves HTTP until SIGINT or
// SIGTERM.
func (a *App) RunService() error {
	fmt.Println("Starting rovermesh service...")

	if err := a.startMission(); err != nil {
		return err
	}
	log.Printf("Mission %s", a.Rover.MissionID())

	if a.MqttMode {
		client, err := rover.InitMQTT(a.Config, a.handleTelemetry)
		if err != nil {
			return fmt.Errorf("initializing MQTT: %w", err)
		}
		a.TelemetryClient = client
		a.Publisher = rover.NewCommandPublisher(client.GetClient(), a.Config.MQTT)
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.Rover),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	fmt.Println("\nService Running")
	fmt.Println("===============")
	if a.MqttMode {
		fmt.Println("\nMQTT:")
		fmt.Printf("  Telemetry: %s\n", a.Config.MQTT.TelemetryTopic)
		fmt.Printf("  Commands:  %s\n", a.Config.MQTT.CommandTopic)
	}
	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Println("  GET /health          - Health check")
		fmt.Println("  GET /state           - Latest mission snapshot")
		fmt.Println("  GET /worldmap.png    - World map raster")
		fmt.Println("  GET /worldmap.svg    - World map vector")
		fmt.Println("  GET /vision.png      - Latest perception masks")
		fmt.Println("  GET /samples.geojson - Samples, start and trail")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down service...")
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.TelemetryClient != nil {
		a.TelemetryClient.Disconnect()
	}
	a.saveMapCache()
	fmt.Println("Service stopped")
	return nil
}
