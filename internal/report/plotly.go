package report

// plotlyPanel is the client-side form of a Panel: Plotly traces plus layout.
type plotlyPanel struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Data   []map[string]any `json:"data"`
	Layout map[string]any   `json:"layout"`
}

func toPlotly(p Panel) plotlyPanel {
	layout := map[string]any{
		"margin":     map[string]any{"l": 60, "r": 30, "t": 20, "b": 50},
		"showlegend": false,
		"template":   "plotly_white",
		"font":       map[string]any{"family": "Arial, sans-serif"},
	}
	out := plotlyPanel{ID: p.ID, Title: p.Title, Layout: layout, Data: []map[string]any{}}
	if p.Empty() {
		layout["annotations"] = []map[string]any{{
			"text":      "No data",
			"showarrow": false,
			"xref":      "paper",
			"yref":      "paper",
			"x":         0.5,
			"y":         0.5,
		}}
		layout["xaxis"] = map[string]any{"visible": false}
		layout["yaxis"] = map[string]any{"visible": false}
		return out
	}

	switch p.Kind {
	case KindBar:
		out.Data = append(out.Data, map[string]any{
			"type":         "bar",
			"x":            p.Labels,
			"y":            p.Values,
			"text":         p.Text,
			"textposition": "outside",
			"marker":       map[string]any{"color": p.Color},
		})
	case KindHorizontalBar:
		out.Data = append(out.Data, map[string]any{
			"type":         "bar",
			"orientation":  "h",
			"x":            p.Values,
			"y":            p.Labels,
			"text":         p.Text,
			"textposition": "outside",
			"marker":       map[string]any{"color": p.Color},
		})
		layout["yaxis"] = map[string]any{"autorange": "reversed", "automargin": true}
	case KindHistogram:
		out.Data = append(out.Data, map[string]any{
			"type":   "histogram",
			"x":      p.Values,
			"nbinsx": p.Bins,
			"marker": map[string]any{"color": p.Color},
		})
	case KindLine:
		out.Data = append(out.Data, map[string]any{
			"type":   "scatter",
			"mode":   "lines+markers",
			"x":      p.Labels,
			"y":      p.Values,
			"marker": map[string]any{"color": p.Color},
			"line":   map[string]any{"width": 2},
		})
	case KindTable:
		columns := make([][]string, len(p.Header))
		for _, row := range p.Rows {
			for j := range columns {
				cell := ""
				if j < len(row) {
					cell = row[j]
				}
				columns[j] = append(columns[j], cell)
			}
		}
		header := make([]string, len(p.Header))
		for j, h := range p.Header {
			header[j] = "<b>" + h + "</b>"
		}
		out.Data = append(out.Data, map[string]any{
			"type":   "table",
			"header": map[string]any{
				"values": header,
				"fill":   map[string]any{"color": p.HeaderFill},
				"font":   map[string]any{"color": "white", "size": 12},
				"align":  "left",
			},
			"cells": map[string]any{
				"values": columns,
				"fill":   map[string]any{"color": p.CellFill},
				"font":   map[string]any{"size": 11},
				"align":  "left",
			},
		})
	case KindMap:
		lats := make([]float64, len(p.Points))
		lons := make([]float64, len(p.Points))
		for i, pt := range p.Points {
			lats[i] = pt.Lat
			lons[i] = pt.Lon
		}
		out.Data = append(out.Data, map[string]any{
			"type":   "scattermapbox",
			"mode":   "markers",
			"lat":    lats,
			"lon":    lons,
			"text":   p.Hover,
			"marker": map[string]any{"size": 8, "color": p.Color},
		})
		layout["mapbox"] = map[string]any{
			"style":  "open-street-map",
			"center": map[string]any{"lat": p.Center.Lat, "lon": p.Center.Lon},
			"zoom":   p.Zoom,
		}
	}
	return out
}
