package dashboard

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"

	"github.com/ziadkadry99/neurosphere/internal/api"
	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

func (d *Dashboard) handleScene(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, d.feed.Scene().Snapshot())
}

// handleActivityChart renders the average activity of every device per time
// slice as a grouped bar chart.
func (d *Dashboard) handleActivityChart(w http.ResponseWriter, r *http.Request) {
	snap := d.feed.Latest()
	if snap == nil {
		api.WriteError(w, http.StatusServiceUnavailable, "telemetry not loaded yet")
		return
	}

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(activityChart(snap))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		d.log.Error("rendering activity chart", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "render error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func activityChart(snap *telemetry.Snapshot) *charts.Bar {
	x := make([]string, telemetry.SliceCount)
	for i := range x {
		x[i] = fmt.Sprintf("Slice %d", i)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Neural Activity", Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Average activity per device",
			Subtitle: fmt.Sprintf("devices=%d active=%d", len(snap.Devices), snap.ActiveDevices()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "activity", Min: 0, Max: 1}),
	)
	bar.SetXAxis(x)

	for _, dev := range snap.Devices {
		data := make([]opts.BarData, telemetry.SliceCount)
		for i := range data {
			data[i] = opts.BarData{Value: telemetry.AverageActivity(dev, i)}
		}
		bar.AddSeries(fmt.Sprintf("Device %d", dev.ID), data)
	}
	return bar
}
