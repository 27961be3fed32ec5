package maze

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func featuresByLayer(fc *geojson.FeatureCollection) map[string][]*geojson.Feature {
	out := make(map[string][]*geojson.Feature)
	for _, f := range fc.Features {
		layer, _ := f.Properties["layerType"].(string)
		out[layer] = append(out[layer], f)
	}
	return out
}

func TestGridGeoJSON_Cells(t *testing.T) {
	s := exploredState(t)
	fc := GridGeoJSON(s)
	layers := featuresByLayer(fc)

	// visited start, current cell, two available neighbours
	require.Len(t, layers["cell"], 4)
	for _, f := range layers["cell"] {
		poly, ok := f.Geometry.(orb.Polygon)
		require.True(t, ok)
		require.Len(t, poly, 1)
		assert.Len(t, poly[0], 5, "closed unit square")
	}

	states := map[string]int{}
	for _, f := range layers["cell"] {
		states[f.Properties["state"].(string)]++
	}
	assert.Equal(t, map[string]int{"visited": 1, "current": 1, "available": 2}, states)

	require.Len(t, layers["pose"], 1)
	pose := layers["pose"][0]
	assert.Equal(t, orb.Point{2.5, 3.5}, pose.Geometry)
	assert.Equal(t, "Up", pose.Properties["direction"])
	assert.InDelta(t, 2.0, pose.Properties["exploredCells"], 1e-9)
}

func TestGridGeoJSON_TrailCollapsesStraightRuns(t *testing.T) {
	s, err := NewNavState(9, Pose{X: 4, Y: 8, Dir: Up})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		s, err = ApplyMove(s, MoveForward, 30, AllOpen(), TurnFused)
		require.NoError(t, err)
	}
	s, err = ApplyMove(s, MoveRight, 30, AllOpen(), TurnFused)
	require.NoError(t, err)

	layers := featuresByLayer(GridGeoJSON(s))
	require.Len(t, layers["trail"], 1)
	trail := layers["trail"][0]
	ls, ok := trail.Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.LineString{{4.5, 8.5}, {4.5, 5.5}, {5.5, 5.5}}, ls)
	assert.Equal(t, 4, trail.Properties["moves"])
}

func TestGridGeoJSON_MarshalsAsFeatureCollection(t *testing.T) {
	data, err := json.Marshal(GridGeoJSON(exploredState(t)))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 6)
}
