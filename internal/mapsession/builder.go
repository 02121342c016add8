package mapsession

import (
	"time"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

// builder turns a resolution into a complete layer set.
type builder struct {
	catalog *imagery.Catalog
	heat    *HeatGenerator
}

// initial is the state shown on page load: Peru framed, true color and
// precipitation on, everything else off.
func (b *builder) initial(res *availability.Resolution, now time.Time) State {
	s := State{
		Zoom:   InitialZoom,
		Center: InitialCenter,
		Bounds: PeruBounds,
	}
	return b.apply(s, res, false, now)
}

// rebuild replaces the whole layer set for a new resolution, keeping the
// viewport. Heatmaps are regenerated and shown.
func (b *builder) rebuild(prev State, res *availability.Resolution, now time.Time) State {
	out := prev.Clone()
	return b.apply(out, res, true, now)
}

func (b *builder) apply(s State, res *availability.Resolution, heatVisible bool, now time.Time) State {
	trueColorDate := resolvedDate(res, imagery.SourceTrueColor, res.Requested)
	precipDate := resolvedDate(res, imagery.SourcePrecipitation, res.Requested)
	// Sea surface follows the true color date unless it was probed itself.
	sstDate := resolvedDate(res, imagery.SourceSeaSurface, trueColorDate)

	esriVisible := false
	if prev, ok := s.Layers[LayerEsri]; ok {
		esriVisible = prev.Visible
	}

	layers := make(map[string]Layer, len(layerOrder))
	if src, err := b.catalog.Get(imagery.SourceTrueColor); err == nil {
		layers[LayerTrueColor] = imageryLayer(LayerTrueColor, "MODIS True Color (NASA)", KindBase, src, trueColorDate, true)
	}
	if src, err := b.catalog.Get(imagery.SourcePrecipitation); err == nil {
		layers[LayerPrecipitation] = imageryLayer(LayerPrecipitation, "IMERG precipitation (NASA)", KindOverlay, src, precipDate, true)
	}
	if src, err := b.catalog.Get(imagery.SourceSeaSurface); err == nil {
		layers[LayerSeaSurface] = imageryLayer(LayerSeaSurface, "El Niño event (SST NASA)", KindOverlay, src, sstDate, false)
	}

	esri := esriLayer()
	esri.Visible = esriVisible
	layers[LayerEsri] = esri
	layers[LayerStreets] = streetsLayer(s.Zoom)

	layers[LayerHeatPiura] = heatLayer(LayerHeatPiura, "Piura heatmap", 35, 10, 15, 0.8,
		b.heat.Regional(regionalSamples), heatVisible)
	layers[LayerHeatPeru] = heatLayer(LayerHeatPeru, "Peru heatmap", 45, 15, 10, 0.8,
		b.heat.Regional(regionalSamples), heatVisible)
	layers[LayerHeatForecast] = heatLayer(LayerHeatForecast, "Flood forecast", 35, 10, 15, 0.7,
		b.heat.Forecast(forecastSamples), heatVisible)

	s.Layers = layers
	s.RequestedDate = res.Requested
	s.CurrentDate = trueColorDate
	s.Resolution = res
	s.Status = res.Status()
	s.UpdatedAt = now
	return s
}

func resolvedDate(res *availability.Resolution, id imagery.SourceID, fallback imagery.Date) imagery.Date {
	if r, ok := res.Get(id); ok {
		return r.Resolved
	}
	return fallback
}
