// Package prefs persists user preferences for the monitor. The document is a
// flat YAML key/value file: unknown keys are ignored on load, missing keys
// take defaults, and a valid value round-trips exactly.
package prefs

import "time"

// CPU view modes. The GUI decides what each mode looks like; the core only
// stores the choice.
const (
	ViewMultiThread = "multi_thread"
	ViewGeneral     = "general"
	ViewMultiWindow = "multi_window"
)

type Preferences struct {
	CPUViewMode string `yaml:"cpu_view_mode" json:"cpu_view_mode" validate:"oneof=multi_thread general multi_window"`

	HistorySeconds   int `yaml:"history_seconds" json:"history_seconds" validate:"min=5,max=3600"`
	PlotRefreshMS    int `yaml:"plot_refresh_ms" json:"plot_refresh_ms" validate:"min=50,max=60000"`
	TextRefreshMS    int `yaml:"text_refresh_ms" json:"text_refresh_ms" validate:"min=50,max=60000"`
	ProcessRefreshMS int `yaml:"process_refresh_ms" json:"process_refresh_ms" validate:"min=100,max=60000"`
	FSRefreshMS      int `yaml:"fs_refresh_ms" json:"fs_refresh_ms" validate:"min=100,max=600000"`

	EMAAlpha    float64 `yaml:"ema_alpha" json:"ema_alpha" validate:"min=0.001,max=0.999"`
	MemEMAAlpha float64 `yaml:"mem_ema_alpha" json:"mem_ema_alpha" validate:"min=0.001,max=0.999"`

	ShowCPUFreq    bool `yaml:"show_cpu_freq" json:"show_cpu_freq"`
	FillGraphs     bool `yaml:"fill_graphs" json:"fill_graphs"`
	SmoothNetwork  bool `yaml:"smooth_network" json:"smooth_network"`
	ExtraSmoothing bool `yaml:"extra_smoothing" json:"extra_smoothing"`
	Antialiasing   bool `yaml:"antialiasing" json:"antialiasing"`
	ShowGridX      bool `yaml:"show_grid_x" json:"show_grid_x"`
	ShowGridY      bool `yaml:"show_grid_y" json:"show_grid_y"`

	ThreadLineWidth float64 `yaml:"thread_line_width" json:"thread_line_width" validate:"min=0.5,max=10"`

	// ThemeID is opaque to the core; the GUI interprets it.
	ThemeID string `yaml:"theme_id" json:"theme_id"`
}

// Defaults mirror the monitor's shipped configuration.
func Defaults() Preferences {
	return Preferences{
		CPUViewMode:      ViewMultiThread,
		HistorySeconds:   60,
		PlotRefreshMS:    150,
		TextRefreshMS:    1000,
		ProcessRefreshMS: 1000,
		FSRefreshMS:      2000,
		EMAAlpha:         0.4,
		MemEMAAlpha:      0.1,
		ShowCPUFreq:      true,
		FillGraphs:       true,
		SmoothNetwork:    true,
		ExtraSmoothing:   true,
		Antialiasing:     true,
		ShowGridX:        true,
		ShowGridY:        true,
		ThreadLineWidth:  1.5,
		ThemeID:          "dark",
	}
}

// Clamp forces every numeric field into its documented range and resets an
// unknown view mode. Out-of-range persisted values load clamped instead of
// failing.
func (p *Preferences) Clamp() {
	switch p.CPUViewMode {
	case ViewMultiThread, ViewGeneral, ViewMultiWindow:
	default:
		p.CPUViewMode = ViewMultiThread
	}

	p.HistorySeconds = clampInt(p.HistorySeconds, 5, 3600)
	p.PlotRefreshMS = clampInt(p.PlotRefreshMS, 50, 60000)
	p.TextRefreshMS = clampInt(p.TextRefreshMS, 50, 60000)
	p.ProcessRefreshMS = clampInt(p.ProcessRefreshMS, 100, 60000)
	p.FSRefreshMS = clampInt(p.FSRefreshMS, 100, 600000)
	p.EMAAlpha = clampFloat(p.EMAAlpha, 0.001, 0.999)
	p.MemEMAAlpha = clampFloat(p.MemEMAAlpha, 0.001, 0.999)
	p.ThreadLineWidth = clampFloat(p.ThreadLineWidth, 0.5, 10)
}

// Interval helpers used when wiring the sampler.

func (p Preferences) PlotInterval() time.Duration {
	return time.Duration(p.PlotRefreshMS) * time.Millisecond
}

func (p Preferences) TextInterval() time.Duration {
	return time.Duration(p.TextRefreshMS) * time.Millisecond
}

func (p Preferences) ProcessInterval() time.Duration {
	return time.Duration(p.ProcessRefreshMS) * time.Millisecond
}

func (p Preferences) FSInterval() time.Duration {
	return time.Duration(p.FSRefreshMS) * time.Millisecond
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
