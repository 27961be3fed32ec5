package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwv/mazetrack/maze"
)

// maxBodyBytes caps POST bodies
const maxBodyBytes = 4096

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *maze.StateTracker, renderer *maze.VectorRenderer) http.Handler {
	mux := http.NewServeMux()
	gridRenderer := maze.NewGridRenderer()
	treeRenderer := maze.NewTreeRenderer()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		_, hasState := stateTracker.Latest()
		writeJSON(w, http.StatusOK, struct {
			Status     string    `json:"status"`
			Timestamp  time.Time `json:"timestamp"`
			HasSession bool      `json:"hasSession"`
			HasState   bool      `json:"hasState"`
		}{
			Status:     "ok",
			Timestamp:  time.Now(),
			HasSession: stateTracker.Session() != nil,
			HasState:   hasState,
		})
	})

	mux.HandleFunc("GET /state.json", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := latest(w, stateTracker)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	mux.HandleFunc("GET /grid.geojson", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := latest(w, stateTracker)
		if !ok {
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Type", "application/geo+json")
		if err := json.NewEncoder(w).Encode(maze.GridGeoJSON(snap.Nav)); err != nil {
			log.Printf("Error encoding grid GeoJSON: %v", err)
		}
	})

	// Raster views
	mux.HandleFunc("GET /grid.png", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := latest(w, stateTracker)
		if !ok {
			return
		}
		serveRendered(w, "image/png", func(buf io.Writer) error {
			return gridRenderer.EncodePNG(buf, snap.Nav)
		})
	})
	mux.HandleFunc("GET /tree.png", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := latest(w, stateTracker)
		if !ok {
			return
		}
		serveRendered(w, "image/png", func(buf io.Writer) error {
			return treeRenderer.EncodePNG(buf, snap.Tree)
		})
	})
	mux.HandleFunc("GET /labyrinth.png", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := latest(w, stateTracker)
		if !ok {
			return
		}
		serveRendered(w, "image/png", func(buf io.Writer) error {
			return renderer.Render(buf, maze.ViewLabyrinth, "png", snap)
		})
	})

	// Vector views
	for _, view := range []string{maze.ViewTree, maze.ViewGrid, maze.ViewLabyrinth} {
		mux.HandleFunc("GET /"+view+".svg", func(w http.ResponseWriter, r *http.Request) {
			snap, ok := latest(w, stateTracker)
			if !ok {
				return
			}
			serveRendered(w, "image/svg+xml", func(buf io.Writer) error {
				return renderer.Render(buf, view, "svg", snap)
			})
		})
	}

	mux.Handle("GET /metrics", promhttp.Handler())

	// Control endpoints
	mux.HandleFunc("POST /command", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Move string `json:"move"`
		}
		sess, ok := decodeControl(w, r, stateTracker, &req)
		if !ok {
			return
		}
		move, err := maze.ParseMove(req.Move)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[HTTP] Manual %s requested by %s", move, r.RemoteAddr)
		respondControl(w, sess.Command(r.Context(), move), sess)
	})

	mux.HandleFunc("POST /mode", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode string `json:"mode"`
		}
		sess, ok := decodeControl(w, r, stateTracker, &req)
		if !ok {
			return
		}
		mode, err := maze.ParseMode(req.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondControl(w, sess.SwitchMode(r.Context(), mode), sess)
	})

	mux.HandleFunc("POST /path", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		sess, ok := decodeControl(w, r, stateTracker, &req)
		if !ok {
			return
		}
		respondControl(w, sess.RequestPath(r.Context(), req.From, req.To), sess)
	})

	return mux
}

// latest writes 503 and reports false until a snapshot exists
func latest(w http.ResponseWriter, st *maze.StateTracker) (maze.Snapshot, bool) {
	snap, ok := st.Latest()
	if !ok {
		http.Error(w, "No session state available", http.StatusServiceUnavailable)
	}
	return snap, ok
}

// serveRendered renders into a buffer first so a failure still yields a clean 500
func serveRendered(w http.ResponseWriter, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Printf("Error rendering %s: %v", contentType, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing %s: %v", contentType, err)
	}
}

func decodeControl(w http.ResponseWriter, r *http.Request, st *maze.StateTracker, dst any) (*maze.Session, bool) {
	sess := st.Session()
	if sess == nil {
		http.Error(w, "No active session", http.StatusServiceUnavailable)
		return nil, false
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return sess, true
}

// respondControl maps a session error to a status and echoes the new snapshot
func respondControl(w http.ResponseWriter, err error, sess *maze.Session) {
	if err != nil {
		log.Printf("[HTTP] Control request failed: %v", err)
		http.Error(w, err.Error(), controlStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func controlStatus(err error) int {
	var be *maze.BoundsError
	var ae *maze.AvailabilityError
	switch {
	case errors.Is(err, maze.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, maze.ErrUnknownNode), errors.Is(err, maze.ErrSameNode):
		return http.StatusBadRequest
	case errors.Is(err, maze.ErrWrongMode), errors.Is(err, maze.ErrStateChanged), errors.As(err, &be), errors.As(err, &ae):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}
