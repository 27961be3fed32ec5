package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kwv/mazetrack/maze"
	"github.com/kwv/mazetrack/tui"
)

// App encapsulates the application state and dependencies
type App struct {
	Config       *maze.Config
	StateTracker *maze.StateTracker
	Renderer     *maze.VectorRenderer

	// CLI Flags (effectively dependencies)
	ConfigFile    string
	TransportKind string
	ModeName      string
	Direction     string
	StartX        int
	StartY        int
	GridSize      int
	HTTPMode      bool
	HTTPPort      int
	TUIMode       bool
	LogFile       string
	ReplayFile    string
	OutputFile    string
	Format        string
	View          string

	stdin  io.Reader
	stdout io.Writer
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StateTracker: maze.NewStateTracker(),
		Renderer:     maze.NewVectorRenderer(),
		ConfigFile:   "config.yaml",
		StartX:       -1,
		StartY:       -1,
		Format:       "svg",
		View:         maze.ViewTree,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.TransportKind = opts.Transport
	a.ModeName = opts.Mode
	a.Direction = opts.Direction
	a.StartX = opts.StartX
	a.StartY = opts.StartY
	a.GridSize = opts.GridSize
	a.HTTPMode = opts.HTTPMode
	a.HTTPPort = opts.HTTPPort
	a.TUIMode = opts.TUIMode
	a.LogFile = opts.LogFile
	a.ReplayFile = opts.ReplayFile
	a.OutputFile = opts.OutputFile
	a.Format = opts.Format
	a.View = opts.View
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, then layers the command-line overrides on top.
func (a *App) loadConfig() (*maze.Config, error) {
	cfg, err := maze.LoadConfig(a.ConfigFile)
	if err != nil {
		if _, statErr := os.Stat(a.ConfigFile); !os.IsNotExist(statErr) {
			return nil, fmt.Errorf("failed to load config %s: %w", a.ConfigFile, err)
		}
		log.Printf("No config at %s, using defaults", a.ConfigFile)
		cfg = maze.DefaultConfig()
		maze.ApplyEnvOverrides(cfg)
	} else {
		log.Printf("Loaded config from %s", a.ConfigFile)
	}
	if err := a.applyOverrides(cfg); err != nil {
		return nil, err
	}
	a.Config = cfg
	return cfg, nil
}

func (a *App) applyOverrides(cfg *maze.Config) error {
	if a.TransportKind != "" {
		cfg.Transport.Kind = a.TransportKind
	}
	if a.ModeName != "" {
		m, err := maze.ParseMode(a.ModeName)
		if err != nil {
			return err
		}
		cfg.Mode.Initial = m
	}
	if a.GridSize > 0 {
		cfg.Grid.Size = a.GridSize
		// recentre unless the start is given explicitly
		if a.StartX < 0 && a.StartY < 0 {
			cfg.Grid.StartX, cfg.Grid.StartY = a.GridSize/2, a.GridSize/2
		}
	}
	if a.StartX >= 0 {
		cfg.Grid.StartX = a.StartX
	}
	if a.StartY >= 0 {
		cfg.Grid.StartY = a.StartY
	}
	if a.Direction != "" {
		d, err := maze.ParseDirection(a.Direction)
		if err != nil {
			return err
		}
		cfg.Grid.StartDirection = d
	}
	if a.HTTPPort > 0 {
		cfg.HTTP.Port = a.HTTPPort
	}
	return nil
}

// replay feeds a recorded telemetry file through a read-only session and
// returns the final snapshot.
func (a *App) replay(ctx context.Context) (maze.Snapshot, error) {
	if a.ReplayFile == "" {
		return maze.Snapshot{}, errors.New("no telemetry to replay: pass --replay FILE")
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return maze.Snapshot{}, err
	}
	if err := cfg.ValidateGrid(); err != nil {
		return maze.Snapshot{}, err
	}

	in := a.stdin
	if a.ReplayFile != "-" {
		f, err := os.Open(a.ReplayFile)
		if err != nil {
			return maze.Snapshot{}, fmt.Errorf("opening replay file: %w", err)
		}
		defer f.Close()
		in = f
	}

	sess, err := maze.NewSession(cfg.SessionConfig(), nil, a.StateTracker)
	if err != nil {
		return maze.Snapshot{}, err
	}
	a.StateTracker.Attach(sess)

	tr := maze.NewReaderTransport(in, nil, cfg.Telemetry.TerminateToken)
	if err := a.pump(ctx, tr, sess, nil); err != nil {
		return maze.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// pump runs the transport stream, the session loop and any extra services
// until the stream ends, the session ends or ctx is done. It reports whether
// the session ended on the termination token through terminated.
func (a *App) pump(ctx context.Context, tr maze.Transport, sess *maze.Session, terminated *bool, extra ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	lines := make(chan string, 64)
	g.Go(func() error {
		defer close(lines)
		err := tr.Stream(runCtx, lines)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		err := sess.Run(runCtx, lines)
		switch {
		case errors.Is(err, maze.ErrTerminated):
			if terminated != nil {
				*terminated = true
			}
			return nil
		case errors.Is(err, context.Canceled):
			return nil
		}
		return err
	})
	for _, fn := range extra {
		g.Go(func() error {
			return fn(runCtx)
		})
	}
	return g.Wait()
}

// RunReplay replays telemetry and prints a summary of the final state
func (a *App) RunReplay() error {
	snap, err := a.replay(context.Background())
	if err != nil {
		return err
	}
	printSummary(a.stdout, snap)
	if a.OutputFile != "" {
		if err := maze.SaveSnapshot(snap, a.OutputFile); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Saved snapshot to %s\n", a.OutputFile)
	}
	return nil
}

func printSummary(w io.Writer, snap maze.Snapshot) {
	fmt.Fprintf(w, "Session %s\n", snap.SessionID)
	fmt.Fprintf(w, "  Mode:     %s\n", snap.Mode)
	fmt.Fprintf(w, "  Pose:     %s\n", snap.Nav.Pose)
	fmt.Fprintf(w, "  Ways:     %s\n", snap.Nav.Ways)
	fmt.Fprintf(w, "  Nodes:    %d (%d edges, %d orphans)\n", len(snap.Tree.Nodes), len(snap.Tree.Edges), len(snap.Tree.Orphans))
	fmt.Fprintf(w, "  Current:  %s\n", snap.Tree.Current)
	fmt.Fprintf(w, "  Complete: %v\n", snap.Complete)
	if snap.LastError != "" {
		fmt.Fprintf(w, "  Last error: %s\n", snap.LastError)
	}
}

// RunRender replays telemetry and writes one view of the final state
func (a *App) RunRender() error {
	switch a.Format {
	case "svg", "png", "json", "geojson":
	default:
		return fmt.Errorf("unknown format %q", a.Format)
	}
	switch a.View {
	case maze.ViewTree, maze.ViewGrid, maze.ViewLabyrinth:
	default:
		return fmt.Errorf("unknown view %q", a.View)
	}

	snap, err := a.replay(context.Background())
	if err != nil {
		return err
	}

	output := a.OutputFile
	if output == "" {
		output = a.View + "." + a.Format
	}
	if a.Format == "json" {
		if err := maze.SaveSnapshot(snap, output); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Saved snapshot to %s\n", output)
		return nil
	}

	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if a.Format == "geojson" {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(maze.GridGeoJSON(snap.Nav)); err != nil {
			return fmt.Errorf("encode geojson: %w", err)
		}
	} else if err := a.Renderer.Render(f, a.View, a.Format, snap); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Rendered %s view to %s\n", a.View, output)
	return nil
}

// RunService connects to the robot and runs until interrupted or the
// telemetry stream terminates.
func (a *App) RunService() error {
	fmt.Fprintln(a.stdout, "Starting mazetrack service...")

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.TUIMode && cfg.Transport.Kind == maze.TransportStdin {
		return errors.New("the terminal view cannot share stdin with the stdin transport")
	}

	if a.TUIMode {
		logFile, err := os.OpenFile(a.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
		defer log.SetOutput(os.Stderr)
	}

	tr, err := maze.NewTransport(cfg, a.stdin, a.stdout)
	if err != nil {
		return err
	}
	defer tr.Close()
	log.Printf("[SESSION] Using %s transport", cfg.Transport.Kind)

	sender := maze.NewLimitedSender(tr, cfg.Commands.RatePerSecond, cfg.Commands.Burst)
	sess, err := maze.NewSession(cfg.SessionConfig(), sender, a.StateTracker)
	if err != nil {
		return err
	}
	a.StateTracker.Attach(sess)

	var extra []func(context.Context) error
	if mt, ok := tr.(*maze.MQTTTransport); ok {
		pub := maze.NewStatePublisher(mt.Client(), cfg.Transport.MQTT.PublishPrefix)
		sess.AddListener(pub)
		extra = append(extra, pub.Run)
		log.Printf("[MQTT] Publishing state under %s/", cfg.Transport.MQTT.PublishPrefix)
	}
	if a.HTTPMode {
		extra = append(extra, a.serveHTTP(cfg.HTTP.Port))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// quitting the terminal view stops the service
	uiDone := make(chan struct{})
	close(uiDone)
	if a.TUIMode {
		uiCtx, quit := context.WithCancel(ctx)
		defer quit()
		updates, unsubscribe := a.StateTracker.Subscribe()
		uiDone = make(chan struct{})
		go func() {
			defer close(uiDone)
			defer quit()
			defer unsubscribe()
			if err := tui.Run(uiCtx, sess, updates); err != nil {
				log.Printf("[TUI] %v", err)
			}
		}()
		ctx = uiCtx
	}

	var terminated bool
	err = a.pump(ctx, tr, sess, &terminated, extra...)
	stop()
	<-uiDone

	if !terminated {
		termCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if terr := tr.Terminate(termCtx); terr != nil {
			log.Printf("[SESSION] Terminate request failed: %v", terr)
		}
	}

	printSummary(a.stdout, sess.Snapshot())
	fmt.Fprintln(a.stdout, "Shutdown complete")
	return err
}

// serveHTTP returns a service that runs the view server until ctx is done
func (a *App) serveHTTP(port int) func(context.Context) error {
	return func(ctx context.Context) error {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newHTTPServer(a.StateTracker, a.Renderer),
			ReadHeaderTimeout: 5 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Printf("[HTTP] Listening on %s", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("http server: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		log.Printf("[HTTP] Server stopped")
		return nil
	}
}
