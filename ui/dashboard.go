package ui

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/models"
	"github.com/tarkah/tickrs/services"
)

const (
	tabsHeight       = 3
	summaryHeight    = 5
	summaryRowHeight = 4
	volumeHeight     = 5
	toggleWidth      = 36
	helpText         = "q quit | tab/↓ next | ↑ previous | ←/→ time frame | c chart | e kagi options | s summary | v volumes | p pre/post | h/l scroll kagi | a add | x close | ? help"
)

type DashboardOptions struct {
	ShowXLabels   bool
	ShowVolumes   bool
	Summary       bool
	HideHelp      bool
	HidePrevClose bool
	HideToggle    bool
}

type Dashboard struct {
	MultiStockService *services.MultiStockService
	options           DashboardOptions
	showVolumes       bool
	summaryMode       bool
	showHelp          bool
	adding            bool
	configuring       bool
	input             string
	form              kagiForm
	message           string
	clock             func() time.Time
}

func NewDashboard(multiStockService *services.MultiStockService, options DashboardOptions) *Dashboard {
	return &Dashboard{
		MultiStockService: multiStockService,
		options:           options,
		showVolumes:       options.ShowVolumes,
		summaryMode:       options.Summary,
		clock:             time.Now,
	}
}

func (dashboard *Dashboard) Run() error {
	if err := termui.Init(); err != nil {
		return fmt.Errorf("failed to initialize termui: %w", err)
	}
	defer termui.Close()

	uiEvents := termui.PollEvents()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	dashboard.Render()
	for {
		select {
		case e := <-uiEvents:
			if e.Type == termui.ResizeEvent {
				termui.Clear()
			}
			if dashboard.HandleEvent(e.ID) {
				helpers.Logger.Infoln("Exited by keyboard interrupt")
				return nil
			}
			dashboard.Render()
		case <-ticker.C:
			dashboard.Render()
		}
	}
}

// HandleEvent applies one key event and reports whether the dashboard should exit.
func (dashboard *Dashboard) HandleEvent(id string) bool {
	if id == "<C-c>" {
		return true
	}
	if dashboard.adding {
		dashboard.handleInput(id)
		return false
	}
	selected := dashboard.MultiStockService.Selected()
	if dashboard.configuring {
		dashboard.handleConfiguration(id, selected)
		return false
	}

	switch id {
	case "q":
		return true
	case "?":
		dashboard.showHelp = !dashboard.showHelp
	case "a":
		dashboard.adding = true
		dashboard.input = ""
	case "s":
		dashboard.summaryMode = !dashboard.summaryMode
	case "<Tab>", "<Down>":
		dashboard.MultiStockService.NextTab()
	case "<Up>":
		dashboard.MultiStockService.PreviousTab()
	case "v":
		dashboard.showVolumes = dashboard.MultiStockService.ToggleVolumes()
	case "p":
		if dashboard.MultiStockService.TogglePrePost() {
			dashboard.message = "pre/post market on"
		} else {
			dashboard.message = "pre/post market off"
		}
	}
	if selected == nil {
		return false
	}
	switch id {
	case "<Right>":
		selected.NextTimeFrame()
	case "<Left>":
		selected.PreviousTimeFrame()
	case "c":
		selected.NextChartType()
	case "e":
		dashboard.configuring = true
		dashboard.form = newKagiForm(selected.KagiOptions())
		dashboard.message = ""
	case "h":
		selected.ScrollKagi(models.ScrollLeft, 1)
	case "l":
		selected.ScrollKagi(models.ScrollRight, 1)
	case "H":
		selected.ScrollKagi(models.ScrollLeft, 10)
	case "L":
		selected.ScrollKagi(models.ScrollRight, 10)
	case "x":
		dashboard.MultiStockService.Close(selected.Ticker())
	}
	return false
}

func (dashboard *Dashboard) handleInput(id string) {
	switch id {
	case "<Escape>":
		dashboard.adding = false
	case "<Enter>":
		dashboard.adding = false
		if strings.TrimSpace(dashboard.input) == "" {
			return
		}
		ticker := models.ParseTicker(dashboard.input)
		if err := dashboard.MultiStockService.Open(ticker); err != nil {
			dashboard.message = err.Error()
			helpers.Logger.Errorln("ui: " + err.Error())
		}
	case "<Backspace>", "<C-<Backspace>>":
		if n := len(dashboard.input); n > 0 {
			dashboard.input = dashboard.input[:n-1]
		}
	default:
		if len([]rune(id)) == 1 {
			dashboard.input += strings.ToUpper(id)
		}
	}
}

// handleConfiguration edits the Kagi options of the selected tab. Enter applies them
// and switches the tab to the Kagi chart; rejected options keep the form open with the
// error shown.
func (dashboard *Dashboard) handleConfiguration(id string, selected *services.StockService) {
	if selected == nil {
		dashboard.configuring = false
		return
	}
	switch id {
	case "<Escape>":
		dashboard.configuring = false
		dashboard.message = ""
	case "<Up>":
		dashboard.form.move(-1)
	case "<Down>":
		dashboard.form.move(1)
	case "<Tab>", "<Space>":
		dashboard.form.cycle()
	case "<Backspace>", "<C-<Backspace>>":
		dashboard.form.deleteChar()
	case "<Enter>":
		options, err := dashboard.form.options()
		if err == nil {
			err = selected.ReconfigureKagi(options)
		}
		if err != nil {
			dashboard.message = err.Error()
			return
		}
		selected.SetChartType(models.ChartTypeKagi)
		dashboard.configuring = false
		dashboard.message = fmt.Sprintf("kagi options updated for %s", selected.Ticker().Symbol)
	default:
		if len([]rune(id)) == 1 {
			dashboard.form.addChar(id)
		}
	}
}

func (dashboard *Dashboard) Render() {
	width, height := termui.TerminalDimensions()
	tabs := dashboard.MultiStockService.Tabs()
	drawables := []termui.Drawable{}

	names := make([]string, len(tabs))
	for i, tab := range tabs {
		names[i] = tab.Ticker().Symbol
	}
	tabsWidth := width
	selected := dashboard.MultiStockService.Selected()
	if !dashboard.options.HideToggle && width > 2*toggleWidth {
		tabsWidth = width - toggleWidth
		toggle := widgets.NewParagraph()
		toggle.Title = "Toggle"
		toggle.SetRect(tabsWidth, 0, width, tabsHeight)
		chartType := models.ChartType("")
		if selected != nil {
			chartType = selected.ChartType()
		}
		toggle.Text = ToggleText(chartType, dashboard.showVolumes, dashboard.MultiStockService.IncludePrePost(), dashboard.summaryMode)
		drawables = append(drawables, toggle)
	}
	tabPane := widgets.NewTabPane(names...)
	tabPane.ActiveTabIndex = dashboard.MultiStockService.SelectedIndex()
	tabPane.SetRect(0, 0, tabsWidth, tabsHeight)
	tabPane.Border = true
	drawables = append(drawables, tabPane)

	if selected != nil && dashboard.summaryMode && !dashboard.adding && !dashboard.showHelp {
		drawables = append(drawables, dashboard.summaryRows(tabs, width, height-1)...)
		drawables = append(drawables, dashboard.footer(width, height, height-1))
		termui.Clear()
		termui.Render(drawables...)
		return
	}
	if selected == nil || dashboard.adding || dashboard.showHelp {
		drawables = append(drawables, dashboard.footer(width, height, tabsHeight))
		termui.Clear()
		termui.Render(drawables...)
		return
	}

	chartBottom := height - 1
	if dashboard.showVolumes {
		chartBottom -= volumeHeight
	}
	if dashboard.options.ShowXLabels {
		chartBottom--
	}
	chartTop := tabsHeight + summaryHeight

	canvas := termui.NewCanvas()
	canvas.SetRect(0, chartTop, width, chartBottom)
	view := selected.View(canvas.Inner.Dx(), dashboard.clock())
	canvas.Title = fmt.Sprintf("%s %s (%s)", view.Ticker.Symbol, view.TimeFrame, view.ChartType)

	drawables = append(drawables, dashboard.summary(view, width, tabsHeight))
	if view.Loaded {
		area := newPlotArea(canvas.Inner, view.MinPrice, view.MaxPrice)
		switch view.ChartType {
		case models.ChartTypeLine:
			plotLine(canvas, area, view, !dashboard.options.HidePrevClose)
		case models.ChartTypeCandlestick:
			plotCandles(canvas, area, view)
		case models.ChartTypeKagi:
			plotKagi(canvas, area, view)
		}
	}
	drawables = append(drawables, canvas)

	if dashboard.options.ShowXLabels {
		labels := widgets.NewParagraph()
		labels.Border = false
		labels.SetRect(canvas.Inner.Min.X, chartBottom, width, chartBottom+1)
		labels.Text = dashboard.xLabels(view, canvas.Inner)
		drawables = append(drawables, labels)
	}
	if dashboard.showVolumes && view.ChartType != models.ChartTypeKagi {
		sparkline := widgets.NewSparkline()
		sparkline.LineColor = termui.ColorBlue
		sparkline.Data = volumeColumns(view.VolumePoints, view.SlotCount, canvas.Inner.Dx())
		group := widgets.NewSparklineGroup(sparkline)
		group.Title = "Volume"
		group.SetRect(0, height-1-volumeHeight, width, height-1)
		drawables = append(drawables, group)
	}
	drawables = append(drawables, dashboard.footer(width, height, height-1))

	termui.Clear()
	termui.Render(drawables...)
}

func (dashboard *Dashboard) xLabels(view models.ChartView, inner image.Rectangle) string {
	if view.ChartType == models.ChartTypeKagi {
		return labelRow(view.KagiLabels, func(x float64) int {
			return int(x * kagiDotsPerSegment / dotsPerColumn)
		}, inner.Dx())
	}
	area := newPlotArea(inner, 0, 1)
	return labelRow(view.AxisLabels, func(x float64) int {
		return (area.slotX(x, view.SlotCount) - inner.Min.X*dotsPerColumn) / dotsPerColumn
	}, inner.Dx())
}

func (dashboard *Dashboard) summary(view models.ChartView, width, top int) *widgets.Paragraph {
	paragraph := widgets.NewParagraph()
	paragraph.Border = false
	paragraph.SetRect(0, top, width, top+summaryHeight)
	paragraph.Text = SummaryText(view)
	return paragraph
}

// SummaryText is the header shown above a chart.
func SummaryText(view models.ChartView) string {
	if !view.Loaded {
		if view.Status.NotFound {
			return fmt.Sprintf("[%s not found](fg:red)", view.Ticker.Symbol)
		}
		return "loading..."
	}
	s := view.Summary
	color := "green"
	if s.Change < 0 {
		color = "red"
	}
	text := fmt.Sprintf("[%s](mod:bold)  %.2f  [%+.2f (%+.2f%%)](fg:%s)", view.Ticker.Symbol, s.LastPrice, s.Change, s.ChangePct, color)
	if session := sessionText(view); session != "" {
		text += "  " + session
	}
	text += fmt.Sprintf("\nHigh %.2f  Low %.2f  Volume %.0f", s.High, s.Low, s.Volume)
	if s.PreviousClose > 0 {
		text += fmt.Sprintf("  Prev Close %.2f", s.PreviousClose)
	}
	if view.Holding != nil {
		text += "\n" + holdingText(*view.Holding)
	}
	if view.ChartType == models.ChartTypeKagi {
		vp := view.KagiViewport
		text += fmt.Sprintf("\nKagi %d-%d of %d", vp.Offset+1, vp.Offset+len(view.KagiSegments), vp.Count)
		if vp.HasLeft {
			text += " ◀"
		}
		if vp.HasRight {
			text += " ▶"
		}
	}
	if view.Status.Stale {
		text += fmt.Sprintf("\n[stale: %s](fg:yellow)", view.Status.LastError)
		if !view.Status.LastSuccess.IsZero() {
			text += fmt.Sprintf(" last update %s", view.Status.LastSuccess.Format("15:04:05"))
		}
	}
	return text
}

func sessionText(view models.ChartView) string {
	if view.Ticker.IsCrypto() {
		return ""
	}
	switch view.Session {
	case models.SessionStateRegular:
		return "[market open](fg:green)"
	case models.SessionStatePreMarket, models.SessionStatePostMarket:
		return fmt.Sprintf("[%s](fg:yellow)", view.Session)
	case models.SessionStateClosed:
		return "[market closed](fg:white)"
	}
	return ""
}

func holdingText(holding models.Holding) string {
	color := "green"
	if holding.ProfitLoss < 0 {
		color = "red"
	}
	return fmt.Sprintf("Position %g @ %.2f  Value %.2f  P/L [%+.2f (%+.2f%%)](fg:%s)",
		holding.Quantity, holding.AveragePrice, holding.Value, holding.ProfitLoss, holding.ProfitLossPct, color)
}

// ToggleText lists the display toggles shown next to the tabs.
func ToggleText(chartType models.ChartType, showVolumes, prePost, summary bool) string {
	mode := string(chartType)
	if summary {
		mode = "summary"
	}
	if mode == "" {
		mode = "-"
	}
	return fmt.Sprintf("%s  vol %s  pre/post %s", mode, onOff(showVolumes), onOff(prePost))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// SummaryRow is one ticker's line in summary mode.
func SummaryRow(view models.ChartView) string {
	if !view.Loaded {
		if view.Status.NotFound {
			return "[not found](fg:red)"
		}
		return "loading..."
	}
	s := view.Summary
	color := "green"
	if s.Change < 0 {
		color = "red"
	}
	text := fmt.Sprintf("%.2f  [%+.2f%%](fg:%s)  H %.2f  L %.2f  V %.0f", s.LastPrice, s.ChangePct, color, s.High, s.Low, s.Volume)
	if session := sessionText(view); session != "" {
		text += "  " + session
	}
	if view.Holding != nil {
		pl := "green"
		if view.Holding.ProfitLoss < 0 {
			pl = "red"
		}
		text += fmt.Sprintf("\nP/L [%+.2f (%+.2f%%)](fg:%s)", view.Holding.ProfitLoss, view.Holding.ProfitLossPct, pl)
	}
	if view.Status.Stale {
		text += " [stale](fg:yellow)"
	}
	return text
}

// summaryRows draws one bordered row per tab between the tabs and bottom, keeping the
// selected tab in view.
func (dashboard *Dashboard) summaryRows(tabs []*services.StockService, width, bottom int) []termui.Drawable {
	fit := (bottom - tabsHeight) / summaryRowHeight
	if fit < 1 {
		return nil
	}
	selectedIndex := dashboard.MultiStockService.SelectedIndex()
	first := 0
	if selectedIndex >= fit {
		first = selectedIndex - fit + 1
	}
	textWidth := width * 2 / 5
	now := dashboard.clock()

	var drawables []termui.Drawable
	for i := first; i < len(tabs) && i < first+fit; i++ {
		top := tabsHeight + (i-first)*summaryRowHeight
		view := tabs[i].View(width-textWidth-2, now)

		row := widgets.NewParagraph()
		row.Title = fmt.Sprintf("%s %s", view.Ticker.Symbol, view.TimeFrame)
		if i == selectedIndex {
			row.BorderStyle.Fg = termui.ColorYellow
		}
		row.Text = SummaryRow(view)
		row.SetRect(0, top, textWidth, top+summaryRowHeight)
		drawables = append(drawables, row)

		sparkline := widgets.NewSparkline()
		sparkline.LineColor = termui.ColorGreen
		if view.Summary.Change < 0 {
			sparkline.LineColor = termui.ColorRed
		}
		sparkline.Data = sparkValues(view, width-textWidth-2)
		group := widgets.NewSparklineGroup(sparkline)
		group.SetRect(textWidth, top, width, top+summaryRowHeight)
		drawables = append(drawables, group)
	}
	return drawables
}

func (dashboard *Dashboard) footer(width, height, top int) *widgets.Paragraph {
	paragraph := widgets.NewParagraph()
	paragraph.Border = false
	switch {
	case dashboard.adding:
		paragraph.Text = "Add symbol: " + dashboard.input + "_"
	case dashboard.configuring:
		paragraph.Text = dashboard.form.text()
		if dashboard.message != "" {
			paragraph.Text = fmt.Sprintf("[%s](fg:red)  ", dashboard.message) + paragraph.Text
		}
	case dashboard.showHelp:
		paragraph.Text = strings.ReplaceAll(helpText, " | ", "\n")
	case dashboard.message != "":
		paragraph.Text = dashboard.message
		if !dashboard.options.HideHelp {
			paragraph.Text += "   (? for help)"
		}
	case !dashboard.options.HideHelp:
		paragraph.Text = "? for help"
	}
	bottom := top + 1
	if dashboard.showHelp && !dashboard.adding {
		bottom = height
	}
	paragraph.SetRect(0, top, width, bottom)
	return paragraph
}
