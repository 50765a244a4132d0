package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/mikettle/internal/kettle"
)

// MaxTemperature is the full scale of the temperature bar
const MaxTemperature = 100

// ActionStyle returns the style used to render an action label
func ActionStyle(a kettle.Action) lipgloss.Style {
	switch a {
	case kettle.ActionHeating:
		return HeatingStyle
	case kettle.ActionCooling:
		return CoolingStyle
	case kettle.ActionKeepingWarm:
		return WarmStyle
	default:
		return IdleStyle
	}
}

// TemperatureBar renders current against MaxTemperature as a gradient bar
func TemperatureBar(current, width int) string {
	barWidth := width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)

	ratio := float64(current) / MaxTemperature
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return bar.ViewAs(ratio) + fmt.Sprintf(" %3d°C", current)
}

// formatValue renders one status parameter for display
func formatValue(s kettle.Status, p kettle.Parameter) string {
	switch p {
	case kettle.ParamSetTemperature, kettle.ParamCurrentTemperature:
		v, _ := s.Value(p)
		return fmt.Sprintf("%v°C", v)
	case kettle.ParamCurrentKeepWarmTime:
		return fmt.Sprintf("%d min", s.CurrentKeepWarmTime)
	case kettle.ParamSetKeepWarmTime:
		return fmt.Sprintf("%d (%.1f h)", s.SetKeepWarmTime, s.SetKeepWarmHours())
	case kettle.ParamAction:
		return ActionStyle(s.Action).Render(s.Action.String())
	default:
		v, err := s.Value(p)
		if err != nil {
			return "-"
		}
		return fmt.Sprint(v)
	}
}

// RenderStatus renders a status reading as a box of labelled values
func RenderStatus(title string, s kettle.Status, lastRead time.Time, width int) string {
	width = clampWidth(width)

	lines := []string{
		HeaderTitleStyle.UnsetPaddingLeft().Render(strings.ToUpper(title)),
		"",
		TemperatureBar(s.CurrentTemperature, width),
		"",
	}
	for _, p := range kettle.Parameters {
		key := ResultKeyStyle.Render(capitalize(string(p)) + ":")
		lines = append(lines, key+" "+ResultValueStyle.Render(formatValue(s, p)))
	}
	if !lastRead.IsZero() {
		lines = append(lines, "", FooterStyle.UnsetPaddingLeft().Render("Read at "+lastRead.Local().Format("15:04:05")))
	}

	return HeaderBorderStyle(width).Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// RenderStatusPlain renders a status reading without styling, for pipes
func RenderStatusPlain(s kettle.Status) string {
	var b strings.Builder
	for _, p := range kettle.Parameters {
		v, _ := s.Value(p)
		fmt.Fprintf(&b, "%s: %v\n", p, v)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
