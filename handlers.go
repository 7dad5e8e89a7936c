package main

import (
	"encoding/json"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/rovermesh/rover"
)

// trailTolerance is the Douglas-Peucker tolerance in meters for the trail
// served in /samples.geojson.
const trailTolerance = 0.25

// mapView collects everything the map renderers draw from the rover.
func mapView(r *rover.Rover) rover.MapView {
	snap := r.Snapshot()
	cfg := r.Config()
	v := rover.MapView{
		World:         r.WorldMap(),
		Samples:       r.Samples(),
		Start:         snap.Navigation.Start,
		Trail:         r.Trail(),
		MetersPerCell: cfg.Map.MetersPerCell,
		Total:         cfg.Map.TotalSamples,
	}
	if snap.Tick > 0 {
		pose := snap.Pose
		v.Pose = &pose
	}
	return v
}

// scaleParam reads ?scale=N, falling back to def for missing or bad values.
func scaleParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("scale"))
	if err != nil || n < 1 || n > 16 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Error encoding response: %v", err)
	}
}

// newHTTPServer creates the read-only mission endpoints.
func newHTTPServer(rv *rover.Rover) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		snap := rv.Snapshot()
		writeJSON(w, "application/json", struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			MissionID string    `json:"missionId"`
			Tick      uint64    `json:"tick"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			MissionID: snap.MissionID,
			Tick:      snap.Tick,
		})
	})

	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, "application/json", rv.Snapshot())
	})

	// ?renderer=vector rasterizes the canvas drawing instead of the
	// cell-per-pixel map; scale is ignored then.
	mux.HandleFunc("GET /worldmap.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if r.URL.Query().Get("renderer") == "vector" {
			if err := rover.NewVectorRenderer(mapView(rv)).RenderToPNG(w); err != nil {
				log.Printf("[HTTP] Error rendering world map PNG: %v", err)
			}
			return
		}
		img := rover.RenderWorldMap(mapView(rv), scaleParam(r, 3))
		if err := png.Encode(w, img); err != nil {
			log.Printf("[HTTP] Error encoding world map PNG: %v", err)
		}
	})

	mux.HandleFunc("GET /worldmap.svg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := rover.NewVectorRenderer(mapView(rv)).RenderToSVG(w); err != nil {
			log.Printf("[HTTP] Error rendering world map SVG: %v", err)
		}
	})

	mux.HandleFunc("GET /vision.png", func(w http.ResponseWriter, r *http.Request) {
		masks := rv.VisionMasks()
		if masks.Navigable == nil {
			http.Error(w, "No stable frame yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, rover.RenderVision(masks, scaleParam(r, 2))); err != nil {
			log.Printf("[HTTP] Error encoding vision PNG: %v", err)
		}
	})

	mux.HandleFunc("GET /samples.geojson", func(w http.ResponseWriter, r *http.Request) {
		snap := rv.Snapshot()
		fc := rover.MissionFeatures(rv.Samples(), snap.Navigation.Start, rv.Trail(), trailTolerance)
		writeJSON(w, "application/geo+json", fc)
	})

	return mux
}
