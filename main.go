package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions are the command-line options handed to a Runner.
type AppOptions struct {
	ConfigFile string
	MapCache   string
	ReplayFile string
	OutputFile string
	HttpPort   int
	MqttMode   bool
	HttpMode   bool
	Debug      bool
}

// Runner is the application surface the CLI drives.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunReplay() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("rovermesh", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.MapCache, "map-cache", "", "World map cache to restore on start and save on exit")
	fs.StringVar(&opts.ReplayFile, "replay", "", "Replay a JSON-lines telemetry log through the controller and exit")
	fs.StringVar(&opts.OutputFile, "output", "worldmap.png", "World map output for --replay (.png or .svg)")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run MQTT service mode (telemetry in, commands out)")
	fs.BoolVar(&opts.HttpMode, "http", false, "Run HTTP server mode (state and map endpoints)")
	fs.BoolVar(&opts.Debug, "debug", false, "Log every tick")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "rovermesh version: %s\n", Version)
	app.ApplyOptions(opts)

	if opts.ReplayFile != "" {
		return app.RunReplay()
	}
	if opts.MqttMode || opts.HttpMode {
		return app.RunService()
	}

	fmt.Fprintln(out, "rovermesh: nothing to do")
	fmt.Fprintln(out, "Use --replay=FILE to drive the controller from a telemetry log")
	fmt.Fprintln(out, "Use --mqtt to run against a live simulator")
	fmt.Fprintln(out, "Use --http to serve state, map and sample endpoints")
	fmt.Fprintln(out, "Use --mqtt --http to run both")
	return nil
}
