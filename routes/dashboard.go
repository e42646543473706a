/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	htmltemplate "html/template"
	"net/http"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/humaidq/labvault/db"
	"github.com/humaidq/labvault/labparse"
)

var (
	dashboardStatsFn      = db.GetDashboardStats
	listTestNamesFn       = db.ListTestNames
	testHistoryFn         = db.GetTestHistory
	abnormalBySpecialtyFn = db.AbnormalBySpecialty
)

// TestChart is a rendered trend chart for one lab test.
type TestChart struct {
	TestName  string
	Specialty string
	Readings  int
	HTML      htmltemplate.HTML
}

// chartRange returns the normal range drawn on a chart: the range applied to
// the most recent reading that had one.
func chartRange(points []db.TestHistoryPoint) (lo, hi float64, ok bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].RangeMin != nil && points[i].RangeMax != nil {
			return *points[i].RangeMin, *points[i].RangeMax, true
		}
	}

	return 0, 0, false
}

// yAxisBounds pads the normal range by 10% and widens it to fit the data.
// Open-ended ranges such as HDL (upper bound 999) are not used to scale.
func yAxisBounds(points []db.TestHistoryPoint, lo, hi float64) (interface{}, interface{}) {
	dataMin, dataMax := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		if p.Value < dataMin {
			dataMin = p.Value
		}
		if p.Value > dataMax {
			dataMax = p.Value
		}
	}

	if hi >= 999 {
		return nil, nil
	}

	padding := (hi - lo) * 0.1
	minVal, maxVal := lo-padding, hi+padding

	if dataMin < minVal {
		minVal = dataMin - (dataMax-dataMin)*0.05
	}
	if dataMax > maxVal {
		maxVal = dataMax + (dataMax-dataMin)*0.05
	}

	if minVal < 0 && dataMin >= 0 {
		minVal = 0
	}

	return minVal, maxVal
}

// buildTestChart renders a line chart of a test's readings with the normal
// range as dashed mark lines. It returns "" when there are no points.
func buildTestChart(testName, unit string, points []db.TestHistoryPoint) (string, error) {
	if len(points) == 0 {
		return "", nil
	}

	xAxis := make([]string, 0, len(points))
	yData := make([]opts.LineData, 0, len(points))

	for _, p := range points {
		xAxis = append(xAxis, p.Date.Format("Jan 2, 2006"))

		yData = append(yData, opts.LineData{Value: p.Value})
	}

	lo, hi, hasRange := chartRange(points)

	var yAxisMin, yAxisMax interface{}
	if hasRange {
		yAxisMin, yAxisMax = yAxisBounds(points, lo, hi)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "320px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: testName,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: unit,
			Min:  yAxisMin,
			Max:  yAxisMax,
		}),
	)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			Smooth:     opts.Bool(true),
			ShowSymbol: opts.Bool(true),
		}),
		charts.WithMarkPointNameTypeItemOpts(
			opts.MarkPointNameTypeItem{Name: "Max", Type: "max"},
			opts.MarkPointNameTypeItem{Name: "Min", Type: "min"},
		),
	}

	var markLineItems []interface{}
	if hasRange && lo > 0 {
		markLineItems = append(markLineItems, opts.MarkLineNameYAxisItem{Name: "Normal Min", YAxis: lo})
	}
	if hasRange && hi < 999 {
		markLineItems = append(markLineItems, opts.MarkLineNameYAxisItem{Name: "Normal Max", YAxis: hi})
	}

	if len(markLineItems) > 0 {
		seriesOpts = append(seriesOpts, func(s *charts.SingleSeries) {
			s.MarkLines = &opts.MarkLines{
				Data: markLineItems,
				MarkLineStyle: opts.MarkLineStyle{
					Symbol: []string{"none", "none"},
					LineStyle: &opts.LineStyle{
						Color: "rgba(128, 128, 128, 0.6)",
						Type:  "dashed",
						Width: 1.5,
					},
				},
			}
		})
	}

	line.SetXAxis(xAxis).
		AddSeries(testName, yData).
		SetSeriesOptions(seriesOpts...)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Dashboard renders the signed-in user's summary and per-test trend charts
func Dashboard(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	data["IsDashboard"] = true

	userID, ok := getSessionUserID(s)
	if !ok {
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()

	stats, err := dashboardStatsFn(ctx, userID)
	if err != nil {
		logger.Error("Failed to load dashboard stats", "user_id", userID, "error", err)
		renderError(t, data, http.StatusInternalServerError, "Failed to load dashboard")

		return
	}

	data["Stats"] = stats

	specialties, err := abnormalBySpecialtyFn(ctx, userID)
	if err != nil {
		logger.Error("Failed to count abnormal results", "user_id", userID, "error", err)
	} else {
		data["Specialties"] = specialties
		data["Recommendations"] = labparse.Recommend(specialtyNames(specialties))
	}

	tests, err := listTestNamesFn(ctx, userID)
	if err != nil {
		logger.Error("Failed to list test names", "user_id", userID, "error", err)
		data["Error"] = "Failed to load test history"
		t.HTML(http.StatusOK, "dashboard")

		return
	}

	chartList := make([]TestChart, 0, len(tests))

	for _, test := range tests {
		points, err := testHistoryFn(ctx, userID, test.TestName)
		if err != nil {
			logger.Error("Failed to load test history", "test", test.TestName, "error", err)
			continue
		}

		chart, err := buildTestChart(test.TestName, test.Unit, points)
		if err != nil {
			logger.Error("Failed to render chart", "test", test.TestName, "error", err)
			continue
		}

		if chart == "" {
			continue
		}

		tc := TestChart{
			TestName: test.TestName,
			Readings: len(points),
			HTML:     htmltemplate.HTML(chart), //nolint:gosec // rendered by go-echarts from numeric data
		}
		if def, found := labparse.LookupDefinition(test.TestName); found {
			tc.Specialty = def.Specialty
		}

		chartList = append(chartList, tc)
	}

	data["Charts"] = chartList
	t.HTML(http.StatusOK, "dashboard")
}

func specialtyNames(counts []db.SpecialtyCount) []string {
	names := make([]string, 0, len(counts))
	for _, sc := range counts {
		names = append(names, sc.Specialty)
	}

	return names
}
