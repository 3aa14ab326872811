// orcarender runs the sequencer offline and prints the steps or writes them
// to a standard MIDI file. It also lists the MIDI ports for the config file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"orcas-heart/engine"
	"orcas-heart/midi"
	"orcas-heart/sequencer"
)

func main() {
	var (
		steps    = flag.Int("steps", 64, "number of steps to render")
		out      = flag.String("o", "", "write a .mid file instead of printing")
		preset   = flag.String("preset", "", "preset file to start from")
		seed     = flag.Int64("seed", 1, "seed for matrix randomization")
		random   = flag.Bool("random", false, "randomize both matrix banks first")
		channels = flag.String("channels", "1,2,3,4,5,6", "1-based MIDI channel per voice")
		list     = flag.Bool("list", false, "list MIDI ports and exit")

		length = flag.Int("length", -1, "track length 1-32")
		algoX  = flag.Int("x", -1, "algorithm X 0-127")
		algoY  = flag.Int("y", -1, "algorithm Y 0-127")
		shift  = flag.Int("shift", -1, "shift 0-12")
		space  = flag.Int("space", -1, "space 0-15")
		gate   = flag.Int("gate", -1, "gate length 1-100")
		knob   = flag.Int("knob", -1, "speed knob 0-65535")
	)
	flag.Parse()

	if *list {
		if err := listPorts(); err != nil {
			fatal(err)
		}
		return
	}

	chans, err := parseChannels(*channels)
	if err != nil {
		fatal(err)
	}

	ctrl := sequencer.NewController(engine.DefaultConfig(), rand.New(rand.NewSource(*seed)))
	if *preset != "" {
		p, err := sequencer.LoadPreset(filepath.Dir(*preset), filepath.Base(*preset))
		if err != nil {
			fatal(err)
		}
		ctrl.ApplyPreset(p)
	}

	overrides := []struct {
		v   int
		set func(int)
	}{
		{*length, ctrl.SetLength},
		{*algoX, ctrl.SetAlgoX},
		{*algoY, ctrl.SetAlgoY},
		{*shift, ctrl.SetShift},
		{*space, ctrl.SetSpace},
		{*gate, ctrl.SetGateLength},
		{*knob, ctrl.SetKnob},
	}
	for _, o := range overrides {
		if o.v >= 0 {
			o.set(o.v)
		}
	}
	if *random {
		ctrl.RandomizeMatrix(0)
		ctrl.RandomizeMatrix(1)
	}

	rows, events, end := render(ctrl, *steps)

	if *out == "" {
		fmt.Println(renderTable(rows))
		return
	}

	f, err := os.Create(*out)
	if err != nil {
		fatal(err)
	}
	w := bufio.NewWriter(f)
	if err := writeSMF(w, events, end, midi.NewChannelMap(chans)); err != nil {
		f.Close()
		fatal(err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		fatal(err)
	}
	if err := f.Close(); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %d steps (%v) to %s\n", *steps, end, *out)
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ins, outs, ok := midi.ListPorts()
	if !ok {
		return fmt.Errorf("port scan timed out; the MIDI driver may be hung")
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "orcarender: %v\n", err)
	os.Exit(1)
}
