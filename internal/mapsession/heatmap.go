package mapsession

import (
	"math/rand/v2"
	"sync"
)

// Placeholder sample sizes.
const (
	regionalSamples = 200
	forecastSamples = 100
)


// HeatGenerator produces placeholder heatmap points. It is safe for
// concurrent use.
type HeatGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeatGenerator returns a generator seeded from the runtime.
func NewHeatGenerator() *HeatGenerator {
	return &HeatGenerator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededHeatGenerator returns a deterministic generator.
func NewSeededHeatGenerator(seed uint64) *HeatGenerator {
	return &HeatGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Regional returns n points anywhere on the globe.
func (g *HeatGenerator) Regional(n int) []HeatPoint {
	return g.within(Bounds{SouthWest: LatLng{-90, -180}, NorthEast: LatLng{90, 180}}, n)
}

// Forecast returns n points inside the Piura forecast area.
func (g *HeatGenerator) Forecast(n int) []HeatPoint {
	return g.within(ForecastBounds, n)
}

func (g *HeatGenerator) within(b Bounds, n int) []HeatPoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	latSpan := b.NorthEast.Lat - b.SouthWest.Lat
	lonSpan := b.NorthEast.Lon - b.SouthWest.Lon

	points := make([]HeatPoint, n)
	for i := range points {
		points[i] = HeatPoint{
			Lat:       b.SouthWest.Lat + g.rng.Float64()*latSpan,
			Lon:       b.SouthWest.Lon + g.rng.Float64()*lonSpan,
			Intensity: g.rng.Float64(),
		}
	}
	return points
}
