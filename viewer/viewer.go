// Package viewer draws a live view of the engine world: one crank dial per engine with
// its spark positions, flashing as cylinders fire.
package viewer

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ignition/sim"
	"github.com/pthm-cable/ignition/telemetry"
	"github.com/pthm-cable/ignition/units"
)

const (
	panelWidth   = 280
	dialRadius   = 110
	dialSpacing  = 260
	flashSeconds = 0.25 // Wall-clock time a spark stays lit
	maxSteps     = 20000
)

type plugKey struct {
	engine, cylinder int
}

// Viewer steps the world in (scaled) real time and draws it.
type Viewer struct {
	world *sim.World
	perf  *telemetry.PerfCollector

	rpm       float32
	timeScale float32
	paused    bool
	carry     float64 // Unstepped simulation time from the previous frame

	flashes map[plugKey]float32
	views   []sim.EngineView
	sparks  int
}

// New creates a viewer over world, starting at rpm.
func New(world *sim.World, rpm float64, perf *telemetry.PerfCollector) *Viewer {
	return &Viewer{
		world:     world,
		perf:      perf,
		rpm:       float32(rpm),
		timeScale: 0.01,
		flashes:   make(map[plugKey]float32),
	}
}

// Run opens a window and runs the viewer until it is closed.
func Run(world *sim.World, rpm float64, width, height, fps int, perf *telemetry.PerfCollector) {
	rl.InitWindow(int32(width), int32(height), "Ignition Timing")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(fps))

	v := New(world, rpm, perf)
	for !rl.WindowShouldClose() {
		v.Update()
		v.Draw()
	}
}

// Update advances the simulation by the frame time scaled by the time scale.
func (v *Viewer) Update() {
	frame := rl.GetFrameTime()
	if v.perf != nil {
		v.perf.RecordFrame()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}

	for k, t := range v.flashes {
		t -= frame
		if t <= 0 {
			delete(v.flashes, k)
		} else {
			v.flashes[k] = t
		}
	}

	if v.paused {
		return
	}

	v.carry += float64(frame) * float64(v.timeScale)
	steps := int(v.carry / v.world.DT())
	if steps > maxSteps {
		steps = maxSteps
	}
	v.carry -= float64(steps) * v.world.DT()

	for i := 0; i < steps; i++ {
		v.world.Step()
		for _, e := range v.world.Events() {
			v.flashes[plugKey{e.Engine, e.Cylinder}] = flashSeconds
			v.sparks++
		}
	}
}

// Draw renders the dials and the control panel.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.RayWhite)

	v.views = v.world.Engines(v.views[:0])
	for i, view := range v.views {
		cx := int32(panelWidth + dialSpacing/2 + (i%3)*dialSpacing)
		cy := int32(dialSpacing/2 + (i/3)*dialSpacing)
		v.drawDial(cx, cy, view)
	}

	v.drawPanel()
	rl.EndDrawing()
}

// dialPoint maps a cycle angle to a point on a dial; the dial's full turn is 4π.
func dialPoint(cx, cy int32, r float64, cycleAngle float64) (int32, int32) {
	a := cycleAngle/units.FourPi*2*math.Pi - math.Pi/2
	return cx + int32(r*math.Cos(a)), cy + int32(r*math.Sin(a))
}

func (v *Viewer) drawDial(cx, cy int32, view sim.EngineView) {
	rl.DrawCircleLines(cx, cy, dialRadius, rl.DarkGray)
	rl.DrawText(fmt.Sprintf("%s #%d", view.Name, view.ID), cx-dialRadius, cy-dialRadius-24, 16, rl.DarkGray)

	for cyl, angle := range view.FiringAngles {
		adjusted := units.PositiveMod(angle-view.Advance, units.FourPi)
		x, y := dialPoint(cx, cy, dialRadius, adjusted)

		color := rl.Gray
		radius := float32(6)
		if t, ok := v.flashes[plugKey{view.ID, cyl}]; ok {
			color = rl.Fade(rl.Orange, 0.4+0.6*t/flashSeconds)
			radius = 12
		}
		rl.DrawCircle(x, y, radius, color)

		lx, ly := dialPoint(cx, cy, dialRadius+18, adjusted)
		rl.DrawText(fmt.Sprintf("%d", cyl+1), lx-4, ly-6, 12, rl.DarkGray)
	}

	nx, ny := dialPoint(cx, cy, dialRadius-10, view.CycleAngle)
	needle := rl.Maroon
	if view.Limiting {
		needle = rl.Red
	}
	rl.DrawLine(cx, cy, nx, ny, needle)
	rl.DrawCircle(cx, cy, 4, needle)

	rl.DrawText(fmt.Sprintf("%.0f rpm  adv %.1f deg", view.RPM, units.ToDeg(view.Advance)),
		cx-dialRadius, cy+dialRadius+10, 14, rl.Gray)
}

func (v *Viewer) drawPanel() {
	x := float32(10)
	y := float32(10)

	rl.DrawText("Ignition Timing", int32(x), int32(y), 20, rl.DarkGray)
	y += 35

	rl.DrawText("Engine speed (rpm)", int32(x), int32(y), 14, rl.Gray)
	y += 18
	rpm := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: panelWidth - 80, Height: 20}, "", "", v.rpm, -1000, 9000)
	rl.DrawText(fmt.Sprintf("%.0f", v.rpm), int32(x+panelWidth-70), int32(y+2), 16, rl.DarkGray)
	if rpm != v.rpm {
		v.rpm = rpm
		v.world.SetRPM(float64(rpm))
	}
	y += 35

	rl.DrawText("Time scale", int32(x), int32(y), 14, rl.Gray)
	y += 18
	v.timeScale = gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: panelWidth - 80, Height: 20}, "", "", v.timeScale, 0.001, 1)
	rl.DrawText(fmt.Sprintf("%.3fx", v.timeScale), int32(x+panelWidth-70), int32(y+2), 16, rl.DarkGray)
	y += 35

	label := "Pause"
	if v.paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 30}, label) {
		v.paused = !v.paused
	}
	y += 45

	rl.DrawText(fmt.Sprintf("Sim time: %.4f s", v.world.Time()), int32(x), int32(y), 14, rl.DarkGray)
	y += 20
	rl.DrawText(fmt.Sprintf("Sparks: %d", v.sparks), int32(x), int32(y), 14, rl.DarkGray)
	y += 20
	if v.perf != nil {
		stats := v.perf.Stats()
		rl.DrawText(fmt.Sprintf("FPS: %.0f", stats.FPS), int32(x), int32(y), 14, rl.DarkGray)
	}

	rl.DrawText("Space: pause", int32(x), int32(rl.GetScreenHeight()-24), 12, rl.LightGray)
}
