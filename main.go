package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"orcas-heart/config"
	"orcas-heart/debug"
	"orcas-heart/engine"
	"orcas-heart/midi"
	"orcas-heart/sequencer"
	"orcas-heart/theme"
	"orcas-heart/tui"
)

func main() {
	debugFlag := flag.Bool("debug", false, "write a debug log next to the config file")
	external := flag.Bool("external", false, "follow MIDI clock from the input port")
	presetName := flag.String("preset", "", "preset file in the preset dir to load at startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if *debugFlag || cfg.Debug {
		if path, err := config.DebugLogPath(); err == nil {
			if err := debug.Enable(path); err != nil {
				fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
			}
		}
		defer debug.Disable()
	}

	palettePath, err := cfg.PalettePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "palette: %v\n", err)
		os.Exit(1)
	}
	palette, err := theme.LoadOrDefault(palettePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "palette: %v\n", err)
		os.Exit(1)
	}
	th := theme.New(palette)

	presetDir, err := cfg.PresetPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "presets: %v\n", err)
		os.Exit(1)
	}

	// Sequencer
	ctrl := sequencer.NewController(engine.DefaultConfig(), nil)
	ctrl.SetRoot(cfg.RootNote)
	manager := sequencer.NewManager(ctrl)
	manager.SetClockDivider(cfg.Input.ClockDivider)
	manager.ExternalClock(cfg.Input.ExternalClock || *external)
	manager.StartRuntime()

	startPreset := *presetName
	if startPreset == "" {
		startPreset = cfg.UI.LastPreset
	}
	loaded := ""
	if startPreset != "" {
		if _, err := manager.LoadPreset(presetDir, startPreset); err != nil {
			debug.Log("main", "preset %s: %v", startPreset, err)
		} else {
			loaded = startPreset
		}
	}

	// MIDI ports (handles hot-plug)
	ports := midi.NewPortManager(midi.PortConfig{
		OutputPort: cfg.Output.PortName,
		Channels:   cfg.Output.Channels,
		InputPort:  cfg.Input.PortName,
		Decoder: midi.Decoder{
			GateBaseNote: uint8(cfg.Input.GateBaseNote),
			KnobCC:       uint8(cfg.Input.KnobCC),
			Channel:      cfg.Input.Channel,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ports.Run(ctx)

	m := tui.NewModel(manager, ports, th, presetDir)
	m.Preset = loaded
	m.OnPreset = func(filename string) {
		cfg.UI.LastPreset = filename
		if err := cfg.Save(); err != nil {
			debug.Log("main", "save config: %v", err)
		}
	}
	p := tea.NewProgram(m, tea.WithAltScreen())

	// silence the output before the port manager closes it
	_, err = p.Run()
	manager.Close()
	cancel()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
