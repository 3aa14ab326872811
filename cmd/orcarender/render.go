package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"orcas-heart/engine"
	"orcas-heart/midi"
	"orcas-heart/sequencer"
)

// File resolution: 120 bpm at 960 ticks per quarter
const (
	ppq      = 960
	fileBPM  = 120
	tickRate = ppq * fileBPM / 60 // ticks per second
)

// timedEvent is a voice event at an absolute time from the start
type timedEvent struct {
	at  time.Duration
	evt midi.Event
}

// stepRow is one engine step as the table shows it
type stepRow struct {
	step   int
	at     time.Duration
	speed  int
	length int
	reset  bool
	notes  [engine.NoteCount]string
}

type release struct {
	at    time.Duration
	voice int
	seq   uint64
}

// render runs the controller for steps steps on a virtual clock, releasing
// timed notes the way the live manager does. It returns the step rows, the
// event stream and the end time.
func render(ctrl *sequencer.Controller, steps int) ([]stepRow, []timedEvent, time.Duration) {
	var (
		rows    []stepRow
		out     []timedEvent
		pending []release
		now     time.Duration
	)

	releaseUntil := func(until time.Duration) {
		sort.SliceStable(pending, func(i, j int) bool { return pending[i].at < pending[j].at })
		n := 0
		for _, r := range pending {
			if r.at > until {
				pending[n] = r
				n++
				continue
			}
			if evt, ok := ctrl.Release(r.voice, r.seq); ok {
				out = append(out, timedEvent{at: r.at, evt: evt})
			}
		}
		pending = pending[:n]
	}
	dropPending := func(voice int) {
		n := 0
		for _, r := range pending {
			if r.voice != voice {
				pending[n] = r
				n++
			}
		}
		pending = pending[:n]
	}

	for i := 0; i < steps; i++ {
		releaseUntil(now)
		events := ctrl.Step()
		s := ctrl.Status()
		row := stepRow{step: s.Step, at: now, speed: s.Speed, length: int(s.Effective.Length), reset: s.IsReset}

		for _, evt := range events {
			dropPending(evt.Voice)
			out = append(out, timedEvent{at: now, evt: evt})
			if evt.Type == midi.NoteOn {
				row.notes[evt.Voice] = pitchName(evt.Note)
				if evt.GateTime > 0 {
					pending = append(pending, release{at: now + evt.GateTime, voice: evt.Voice, seq: evt.Seq})
				}
			}
		}
		for n, v := range s.Voices {
			if row.notes[n] == "" && v.Sounding >= 0 {
				row.notes[n] = "|"
			}
		}
		rows = append(rows, row)
		now += ctrl.Interval()
	}

	releaseUntil(now)
	for _, evt := range ctrl.AllNotesOff() {
		out = append(out, timedEvent{at: now, evt: evt})
	}
	return rows, out, now
}

func toTicks(d time.Duration) uint32 {
	return uint32(d * tickRate / time.Second)
}

// writeSMF writes a tempo track plus one track per voice
func writeSMF(w io.Writer, events []timedEvent, end time.Duration, channels midi.ChannelMap) error {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ppq)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(fileBPM))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("tempo track: %w", err)
	}

	endTick := toTicks(end)
	for v := 0; v < engine.NoteCount; v++ {
		var track smf.Track
		var last uint32
		for _, te := range events {
			if te.evt.Voice != v {
				continue
			}
			msg, err := te.evt.Message(channels.Channel(v))
			if err != nil {
				return err
			}
			tick := toTicks(te.at)
			track.Add(tick-last, msg)
			last = tick
		}
		track.Close(endTick - last)
		if err := sm.Add(track); err != nil {
			return fmt.Errorf("voice %d track: %w", v+1, err)
		}
	}

	_, err := sm.WriteTo(w)
	return err
}

// noteOnCount reads back an SMF and counts its note-ons, for checking exports
func noteOnCount(r io.Reader) (int, error) {
	sm, err := smf.ReadFrom(r)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, track := range sm.Tracks {
		for _, ev := range track {
			var ch, key, vel uint8
			if gomidi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				count++
			}
		}
	}
	return count, nil
}

// renderTable formats the step rows
func renderTable(rows []stepRow) string {
	headers := []string{"step", "time", "speed", "len"}
	for v := 0; v < engine.NoteCount; v++ {
		headers = append(headers, fmt.Sprintf("v%d", v+1))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for _, r := range rows {
		step := fmt.Sprintf("%02d", r.step)
		if r.reset {
			step += "*"
		}
		cells := []string{step, r.at.Truncate(time.Millisecond).String(), fmt.Sprint(r.speed), fmt.Sprint(r.length)}
		for _, n := range r.notes {
			if n == "" {
				n = "."
			}
			cells = append(cells, n)
		}
		t.Row(cells...)
	}
	return t.Render()
}

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func pitchName(p uint8) string {
	return fmt.Sprintf("%s%d", pitchNames[p%12], int(p)/12-1)
}

func parseChannels(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		var ch int
		if _, err := fmt.Sscanf(f, "%d", &ch); err != nil {
			return nil, fmt.Errorf("channel %q: %w", f, err)
		}
		if ch < 1 || ch > 16 {
			return nil, fmt.Errorf("channel %d out of range 1-16", ch)
		}
		out = append(out, ch)
	}
	return out, nil
}
