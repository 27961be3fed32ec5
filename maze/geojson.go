package maze

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// cellPolygon returns the unit square of cell (x, y) in grid coordinates,
// counter-clockwise
func cellPolygon(x, y int) orb.Polygon {
	fx, fy := float64(x), float64(y)
	return orb.Polygon{orb.Ring{
		{fx, fy}, {fx + 1, fy}, {fx + 1, fy + 1}, {fx, fy + 1}, {fx, fy},
	}}
}

// cellCentre returns the middle of cell (x, y)
func cellCentre(x, y int) orb.Point {
	return orb.Point{float64(x) + 0.5, float64(y) + 0.5}
}

// GridGeoJSON exports every non-unvisited cell as a polygon with a "state"
// property, plus the robot's trail as a LineString through cell centres.
// Coordinates are in cells with y growing downward.
func GridGeoJSON(s NavState) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	explored := 0.0
	for y := 0; y < s.Grid.Size; y++ {
		for x := 0; x < s.Grid.Size; x++ {
			st := s.Grid.At(x, y)
			if st == Unvisited {
				continue
			}
			poly := cellPolygon(x, y)
			if st == Visited || st == Current {
				explored += planar.Area(poly)
			}
			f := geojson.NewFeature(poly)
			f.Properties["layerType"] = "cell"
			f.Properties["state"] = st.String()
			f.Properties["x"] = x
			f.Properties["y"] = y
			fc.Append(f)
		}
	}

	if len(s.Trail) > 0 {
		trail := make(orb.LineString, len(s.Trail))
		for i, p := range s.Trail {
			trail[i] = cellCentre(p.X, p.Y)
		}
		// collapse collinear runs; a zero threshold keeps every corner
		if len(trail) > 2 {
			if ls, ok := simplify.DouglasPeucker(0).Simplify(trail.Clone()).(orb.LineString); ok {
				trail = ls
			}
		}
		f := geojson.NewFeature(trail)
		f.Properties["layerType"] = "trail"
		f.Properties["moves"] = len(s.Trail) - 1
		fc.Append(f)
	}

	pose := geojson.NewFeature(cellCentre(s.Pose.X, s.Pose.Y))
	pose.Properties["layerType"] = "pose"
	pose.Properties["direction"] = s.Pose.Dir.String()
	pose.Properties["exploredCells"] = explored
	fc.Append(pose)

	return fc
}
