// Timing curve preview tool - edit the advance curve with sliders and see the result.
//
// Usage: go run ./cmd/curvepreview [-config path]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ignition/config"
	"github.com/pthm-cable/ignition/curve"
	"github.com/pthm-cable/ignition/units"
)

const (
	windowWidth  = 1000
	windowHeight = 640
	plotX        = 40
	plotY        = 40
	plotW        = 560
	plotH        = 400
	panelX       = plotX + plotW + 40
	maxRPM       = 9000
	maxAdvance   = 50
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	points := append([]curve.Point(nil), cfg.Timing.Curve...)
	original := append([]curve.Point(nil), points...)

	rl.InitWindow(windowWidth, windowHeight, "Timing Curve Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	fn, fitErr := curve.FromPoints(points)

	for !rl.WindowShouldClose() {
		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawPlot(fn, points)
		if fitErr != nil {
			rl.DrawText(fitErr.Error(), plotX, plotY+plotH+30, 14, rl.Red)
		}

		// Control panel: one advance slider per point
		y := float32(plotY)
		rl.DrawText("Advance per point (deg)", panelX, int32(y), 20, rl.DarkGray)
		y += 35

		changed := false
		for i := range points {
			rl.DrawText(fmt.Sprintf("%.0f rpm", points[i].RPM), panelX, int32(y), 14, rl.Gray)
			y += 18
			adv := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: y, Width: 240, Height: 20},
				"", "",
				float32(points[i].AdvanceDeg), 0, maxAdvance,
			)
			rl.DrawText(fmt.Sprintf("%.1f", points[i].AdvanceDeg), panelX+250, int32(y+2), 16, rl.DarkGray)
			if float64(adv) != points[i].AdvanceDeg {
				points[i].AdvanceDeg = float64(adv)
				changed = true
			}
			y += 30
		}

		if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 30}, "Reset All") {
			copy(points, original)
			changed = true
		}

		if changed {
			fn, fitErr = curve.FromPoints(points)
		}

		rl.DrawText("Press C to copy YAML to clipboard", panelX, windowHeight-30, 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(curveYAML(points))
		}

		rl.EndDrawing()
	}
}

// drawPlot draws advance (deg) against speed (rpm) with the sample points marked.
func drawPlot(fn *curve.Function, points []curve.Point) {
	rl.DrawRectangleLines(plotX, plotY, plotW, plotH, rl.DarkGray)
	rl.DrawText("0", plotX-12, plotY+plotH+4, 12, rl.Gray)
	rl.DrawText(fmt.Sprintf("%d rpm", maxRPM), plotX+plotW-50, plotY+plotH+4, 12, rl.Gray)
	rl.DrawText(fmt.Sprintf("%d deg", maxAdvance), plotX+4, plotY+4, 12, rl.Gray)

	toScreen := func(rpm, deg float64) (int32, int32) {
		sx := plotX + int32(rpm/maxRPM*plotW)
		sy := plotY + plotH - int32(deg/maxAdvance*plotH)
		return sx, sy
	}

	if fn != nil {
		var px, py int32
		for i := 0; i <= plotW; i++ {
			rpm := float64(i) / plotW * maxRPM
			deg := units.ToDeg(fn.SampleTriangle(units.Rpm(rpm)))
			sx, sy := toScreen(rpm, deg)
			if i > 0 {
				rl.DrawLine(px, py, sx, sy, rl.Maroon)
			}
			px, py = sx, sy
		}
	}

	for _, p := range points {
		sx, sy := toScreen(p.RPM, p.AdvanceDeg)
		rl.DrawCircle(sx, sy, 5, rl.DarkBlue)
	}
}

func curveYAML(points []curve.Point) string {
	var b strings.Builder
	b.WriteString("timing:\n  curve:\n")
	for _, p := range points {
		fmt.Fprintf(&b, "    - {rpm: %.0f, advance_deg: %.1f}\n", p.RPM, p.AdvanceDeg)
	}
	return b.String()
}
