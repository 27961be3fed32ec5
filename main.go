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

// AppOptions holds the parsed command-line flags
type AppOptions struct {
	ConfigFile string
	Transport  string
	Mode       string
	Direction  string
	StartX     int
	StartY     int
	GridSize   int
	HTTPMode   bool
	HTTPPort   int
	TUIMode    bool
	LogFile    string
	ReplayFile string
	RenderOnly bool
	OutputFile string
	Format     string
	View       string
}

// Runner is what run dispatches to; App is the real one
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunReplay() error
	RunRender() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("mazetrack", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.Transport, "transport", "", "Override transport kind: ssh, mqtt, file, websocket or stdin")
	fs.StringVar(&opts.Mode, "mode", "", "Initial mode: auto or manual")
	fs.StringVar(&opts.Direction, "direction", "", "Starting direction: up, right, down or left")
	fs.IntVar(&opts.StartX, "start-x", -1, "Starting column (default from config)")
	fs.IntVar(&opts.StartY, "start-y", -1, "Starting row (default from config)")
	fs.IntVar(&opts.GridSize, "grid-size", 0, "Grid side length in cells (default from config)")
	fs.BoolVar(&opts.HTTPMode, "http", false, "Serve state, views and metrics over HTTP")
	fs.IntVar(&opts.HTTPPort, "http-port", 0, "HTTP server port (default from config, 8080)")
	fs.BoolVar(&opts.TUIMode, "tui", false, "Show the terminal view with keyboard control")
	fs.StringVar(&opts.LogFile, "log-file", "mazetrack.log", "Log destination while the terminal view is shown")
	fs.StringVar(&opts.ReplayFile, "replay", "", "Replay a recorded telemetry file (- for stdin) and print a summary")
	fs.BoolVar(&opts.RenderOnly, "render", false, "Replay telemetry and render the final state, then exit")
	fs.StringVar(&opts.OutputFile, "output", "", "Output file for --render (default <view>.<format>)")
	fs.StringVar(&opts.Format, "format", "svg", "Render format: svg, png, json or geojson")
	fs.StringVar(&opts.View, "view", "tree", "Render view: tree, grid or labyrinth")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "mazetrack version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.RenderOnly:
		return app.RunRender()
	case opts.ReplayFile != "":
		return app.RunReplay()
	}
	return app.RunService()
}
