package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pyrelab/firespread/internal/httputil"
)

// chartSimulation renders a scatter plot (HTML) of the fire grid using
// go-echarts, colored by intensity. This is a debugging-only endpoint for
// eyeballing a spread pattern without a frontend.
func (s *Server) chartSimulation(w http.ResponseWriter, id string) {
	snap, err := s.mgr.Snapshot(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	data := make([]opts.ScatterData, 0, len(snap.FireCells))
	maxAbs := 0.0
	maxIntensity := 1.0
	for _, cell := range snap.FireCells {
		if abs := absFloat(cell.X); abs > maxAbs {
			maxAbs = abs
		}
		if abs := absFloat(cell.Y); abs > maxAbs {
			maxAbs = abs
		}
		if cell.Intensity > maxIntensity {
			maxIntensity = cell.Intensity
		}
		data = append(data, opts.ScatterData{Value: []interface{}{cell.X, cell.Y, cell.Intensity}})
	}

	// Pad the axes slightly so edge cells stay visible.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fire Spread", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Fire Spread Grid",
			Subtitle: fmt.Sprintf("simulation=%s tick=%d cells=%d status=%s", snap.SimulationID, snap.CurrentTime, snap.Metadata.TotalCells, snap.Status),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxIntensity),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b20", "#bd0026"}},
		}),
	)

	scatter.AddSeries("cells", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
