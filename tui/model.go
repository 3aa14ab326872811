package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"orcas-heart/engine"
	"orcas-heart/matrix"
	"orcas-heart/midi"
	"orcas-heart/sequencer"
	"orcas-heart/theme"
	"orcas-heart/widgets"
)

type page int

const (
	pageParams page = iota
	pageMatrix
)

// param is one editable row of the parameter page
type param struct {
	name     string
	min, max int
	step     int
	get      func(s sequencer.Status) (base, eff int)
	set      func(c *sequencer.Controller, v int)
}

var params = append([]param{
	{"length", engine.MinLength, engine.MaxLength, 1,
		func(s sequencer.Status) (int, int) { return int(s.Base.Length), int(s.Effective.Length) },
		(*sequencer.Controller).SetLength},
	{"algoX", 0, engine.MaxAlgo, 1,
		func(s sequencer.Status) (int, int) { return int(s.Base.AlgoX), int(s.Effective.AlgoX) },
		(*sequencer.Controller).SetAlgoX},
	{"algoY", 0, engine.MaxAlgo, 1,
		func(s sequencer.Status) (int, int) { return int(s.Base.AlgoY), int(s.Effective.AlgoY) },
		(*sequencer.Controller).SetAlgoY},
	{"shift", 0, engine.MaxShift, 1,
		func(s sequencer.Status) (int, int) { return int(s.Base.Shift), int(s.Effective.Shift) },
		(*sequencer.Controller).SetShift},
	{"space", 0, engine.MaxSpace, 1,
		func(s sequencer.Status) (int, int) { return int(s.Base.Space), int(s.Effective.Space) },
		(*sequencer.Controller).SetSpace},
	{"gate", matrix.MinGateLength, matrix.MaxGateLength, 1,
		func(s sequencer.Status) (int, int) { return s.GateLength, s.EffGate },
		(*sequencer.Controller).SetGateLength},
	{"speed", 0, sequencer.MaxKnob, 512,
		func(s sequencer.Status) (int, int) { return s.Knob, s.Knob },
		(*sequencer.Controller).SetKnob},
	{"transpose", sequencer.MinTranspose, sequencer.MaxTranspose, 1,
		func(s sequencer.Status) (int, int) { return s.Transpose, s.Transpose },
		(*sequencer.Controller).SetTranspose},
	{"root", 0, 127, 1,
		func(s sequencer.Status) (int, int) { return s.Root, s.Root },
		(*sequencer.Controller).SetRoot},
}, delayParams()...)

// delayParams sets how many generations back each voice plays
func delayParams() []param {
	var ps []param
	for n := 0; n < engine.NoteCount; n++ {
		voice := n
		ps = append(ps, param{fmt.Sprintf("delay%d", voice+1), 0, engine.HistoryCount - 1, 1,
			func(s sequencer.Status) (int, int) { return s.Voices[voice].Delay, s.Voices[voice].Delay },
			func(c *sequencer.Controller, v int) { c.SetNoteDelay(voice, v) }})
	}
	return ps
}

// pianoKeys toggle scale degrees 0-11 of the current scale
const pianoKeys = "zsxdcvgbhnjm"

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var sourceNames = [matrix.Banks][matrix.Rows]string{
	matrix.NoteBank: {"note1", "note2", "note3", "note4", "gate1", "gate2", "gate3", "reset"},
	matrix.ModBank:  {"mod1", "mod2", "mod3", "mod4", "mgate1", "mgate2", "mgate3", "reset"},
}

type Model struct {
	Manager   *sequencer.Manager
	Ports     *midi.PortManager // may be nil
	Theme     *theme.Theme
	PresetDir string
	Preset    string                // file last saved or loaded
	OnPreset  func(filename string) // called when Preset changes; may be nil

	page      page
	param     int
	cursorRow int
	cursorCol int
	message   string
	quitting  bool

	controller midi.Controller // current grid (may be nil)
	output     string
	input      string
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(manager *sequencer.Manager, ports *midi.PortManager, th *theme.Theme, presetDir string) Model {
	return Model{
		Manager:   manager,
		Ports:     ports,
		Theme:     th,
		PresetDir: presetDir,
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(ports *midi.PortManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ports.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	if m.Ports == nil {
		return ListenForUpdates(m.Manager)
	}
	return tea.Batch(
		ListenForUpdates(m.Manager),
		ListenForDevices(m.Ports),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case DeviceEventMsg:
		m.handleDevice(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.Ports)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	m.message = ""
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Manager.Stop()
		return m, tea.Quit

	case "tab":
		if m.page == pageParams {
			m.page = pageMatrix
		} else {
			m.page = pageParams
		}

	case "p":
		if m.Manager.Playing() {
			m.Manager.Stop()
		} else {
			m.Manager.Play()
		}

	case "e":
		m.Manager.ExternalClock(!m.Manager.Snapshot().External)

	case "R":
		m.fireGate(sequencer.GateReset)
	case "S":
		m.fireGate(sequencer.GateScale)
	case "A":
		m.fireGate(sequencer.GateOctaveA)
	case "B":
		m.fireGate(sequencer.GateOctaveB)

	case "1", "2", "3", "4", "5", "6":
		voice := int(key[0] - '1')
		m.Manager.UpdateEvents(func(c *sequencer.Controller) []midi.Event { return c.ToggleVoice(voice) })

	case "ctrl+s":
		name, err := m.Manager.SavePreset(m.PresetDir, "")
		if err != nil {
			m.message = "save failed: " + err.Error()
		} else {
			m.message = "saved " + name
			m.setPreset(name)
		}

	case "ctrl+o":
		name, err := m.Manager.LoadPreset(m.PresetDir, "")
		if err != nil {
			m.message = "load failed: " + err.Error()
		} else {
			m.message = "loaded " + name
			m.setPreset(name)
		}

	case "ctrl+d":
		if m.Preset == "" {
			m.message = "no preset to delete"
			break
		}
		if err := m.Manager.DeletePreset(m.PresetDir, m.Preset); err != nil {
			m.message = "delete failed: " + err.Error()
		} else {
			m.message = "deleted " + m.Preset
			m.setPreset("")
		}

	default:
		if m.page == pageParams {
			m.handleParamKey(key)
		} else {
			m.handleMatrixKey(key)
		}
	}
	return m, nil
}

func (m *Model) setPreset(filename string) {
	m.Preset = filename
	if m.OnPreset != nil {
		m.OnPreset(filename)
	}
}

func (m *Model) fireGate(index int) {
	m.Manager.Update(func(c *sequencer.Controller) { c.ProcessGate(index) })
}

func (m *Model) handleParamKey(key string) {
	switch key {
	case "up":
		m.param = (m.param + len(params) - 1) % len(params)
	case "down":
		m.param = (m.param + 1) % len(params)
	case "left":
		m.adjustParam(-1)
	case "right":
		m.adjustParam(1)
	case "shift+left":
		m.adjustParam(-10)
	case "shift+right":
		m.adjustParam(10)
	default:
		if len(key) == 1 {
			if degree := strings.IndexByte(pianoKeys, key[0]); degree >= 0 {
				m.Manager.Update(func(c *sequencer.Controller) {
					c.ToggleScaleNote(c.Engine().CurrentScale(), degree)
				})
			}
		}
	}
}

func (m *Model) adjustParam(delta int) {
	p := params[m.param]
	base, _ := p.get(m.Manager.Snapshot())
	v := min(max(base+delta*p.step, p.min), p.max)
	m.Manager.Update(func(c *sequencer.Controller) { p.set(c, v) })
}

func (m *Model) handleMatrixKey(key string) {
	grid := m.Manager.GridView()
	dests := grid.PageDests()

	switch key {
	case "up":
		m.cursorRow = (m.cursorRow + matrix.Rows - 1) % matrix.Rows
	case "down":
		m.cursorRow = (m.cursorRow + 1) % matrix.Rows
	case "left":
		m.cursorCol = (m.cursorCol + len(dests) - 1) % len(dests)
	case "right":
		m.cursorCol = (m.cursorCol + 1) % len(dests)
	case " ", "enter":
		if m.cursorCol < len(dests) {
			d := dests[m.cursorCol]
			m.Manager.Update(func(c *sequencer.Controller) { c.ToggleMatrixCell(grid.Bank(), m.cursorRow, d) })
		}
	case ".":
		m.Manager.SelectBank((grid.Bank() + 1) % matrix.Banks)
	case ",":
		m.Manager.NextPage()
		m.cursorCol = 0
	case "m":
		m.Manager.Update(func(c *sequencer.Controller) { c.ToggleMatrixMute(grid.Bank()) })
	case "i":
		m.Manager.Update(func(c *sequencer.Controller) { c.ToggleMatrixInvert(grid.Bank()) })
	case "X":
		m.Manager.Update(func(c *sequencer.Controller) { c.ClearMatrix(grid.Bank()) })
	case "*":
		m.Manager.Update(func(c *sequencer.Controller) { c.RandomizeMatrix(grid.Bank()) })
	case "!", "@", "#", "$":
		snap := strings.Index("!@#$", key)
		m.Manager.Update(func(c *sequencer.Controller) { c.SelectSnapshot(grid.Bank(), snap) })
	}
}

func (m *Model) handleDevice(event midi.DeviceEvent) {
	switch event.Type {
	case midi.DeviceConnected:
		if event.Controller == nil {
			return
		}
		m.controller = event.Controller
		m.Manager.SetController(event.Controller)

		// Listen for pad events from the controller
		go func() {
			for pad := range event.Controller.PadEvents() {
				m.Manager.HandlePad(pad.Row, pad.Col)
			}
		}()

	case midi.DeviceDisconnected:
		if m.controller != nil && m.controller.ID() == event.ID {
			m.controller = nil
			m.Manager.SetController(nil)
		}

	case midi.OutputConnected:
		if event.Output == nil {
			return
		}
		m.output = event.ID
		m.Manager.SetSink(event.Output)

	case midi.OutputDisconnected:
		m.output = ""
		m.Manager.SetSink(nil)

	case midi.InputConnected:
		if event.Input == nil {
			return
		}
		m.input = event.ID
		go func() {
			for evt := range event.Input.Events() {
				m.Manager.HandleInput(evt)
			}
		}()

	case midi.InputDisconnected:
		m.input = ""
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.Manager.Snapshot()
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.header(s)))
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.ports()))
	out.WriteString("\n\n")
	out.WriteString(m.renderSteps(s))
	out.WriteString("\n")
	out.WriteString(m.renderVoices(s))
	out.WriteString("\n\n")

	if m.page == pageParams {
		out.WriteString(m.renderParams(s))
		out.WriteString("\n\n")
		out.WriteString(m.renderScales(s))
	} else {
		out.WriteString(m.renderMatrix(s))
		if m.controller != nil {
			out.WriteString("\n\n")
			out.WriteString(widgets.RenderPadGrid(padGrid(m.Manager.GridLEDs())))
		}
	}

	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(m.help()))
	if m.message != "" {
		out.WriteString("\n")
		out.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Warning()).Render(m.message))
	}
	return out.String()
}

func (m Model) header(s sequencer.Status) string {
	state := "STOP"
	if s.Playing {
		state = "PLAY"
	}
	clock := "int"
	if s.External {
		clock = "ext"
	}
	scale := string(rune('A' + s.CurrentScale))
	return fmt.Sprintf("orcas-heart  %s %s  %4d/min  step:%02d/%02d  scale:%s",
		state, clock, s.Speed, s.Step, s.Effective.Length, scale)
}

func (m Model) ports() string {
	out, in, grid := "-", "-", "-"
	if m.output != "" {
		out = m.output
	}
	if m.input != "" {
		in = m.input
	}
	if m.controller != nil {
		grid = m.controller.ID()
	}
	return fmt.Sprintf("out:%s  in:%s  grid:%s", out, in, grid)
}

// renderSteps draws the step counter against the full cycle
func (m Model) renderSteps(s sequencer.Status) string {
	sym := m.Theme.Symbols
	active := lipgloss.NewStyle().Foreground(m.Theme.Active())
	var b strings.Builder
	for i := 0; i < engine.MaxLength; i++ {
		switch {
		case i == s.Step:
			b.WriteString(active.Render(string(sym.Playhead)))
		case i >= int(s.Effective.Length):
			b.WriteRune(sym.Beyond)
		default:
			b.WriteRune(sym.GateOff)
		}
	}
	if s.IsReset {
		b.WriteString(active.Render("  reset"))
	}
	return b.String()
}

func (m Model) renderVoices(s sequencer.Status) string {
	sym := m.Theme.Symbols
	var parts []string
	for n, v := range s.Voices {
		gate := sym.GateOff
		if v.Gate != 0 {
			gate = sym.GateOn
		}
		label := fmt.Sprintf("%d:%c %-4s", n+1, gate, "--")
		if v.Sounding >= 0 {
			label = fmt.Sprintf("%d:%c %-4s", n+1, gate, noteName(v.Sounding))
		}
		if v.Delay > 0 {
			label += fmt.Sprintf("-%d", v.Delay)
		}
		style := lipgloss.NewStyle().Foreground(m.Theme.FG())
		if !v.On {
			style = lipgloss.NewStyle().Foreground(m.Theme.Muted())
		} else if v.Gate != 0 {
			style = lipgloss.NewStyle().Foreground(m.Theme.Level(int(v.Note), 24))
		}
		parts = append(parts, style.Render(label))
	}
	var mods []string
	for i, cv := range s.ModCVs {
		mods = append(mods, fmt.Sprintf("m%d:%+d", i+1, cv))
	}
	return strings.Join(parts, " ") + "\n" + strings.Join(mods, " ")
}

func (m Model) renderParams(s sequencer.Status) string {
	rows := make([]widgets.Param, len(params))
	for i, p := range params {
		base, eff := p.get(s)
		rows[i] = widgets.Param{Name: p.name, Base: base, Effective: eff, Min: p.min, Max: p.max}
	}
	style := lipgloss.NewStyle().Foreground(m.Theme.FG())
	sel := lipgloss.NewStyle().Foreground(m.Theme.Cursor())
	return widgets.RenderParams(rows, m.param, style, sel) +
		fmt.Sprintf("\n  %d/min, step %v", s.Speed, s.Interval)
}

func (m Model) renderScales(s sequencer.Status) string {
	on := lipgloss.NewStyle().Foreground(m.Theme.Success())
	var lines []string
	for sc := 0; sc < engine.ScaleCount; sc++ {
		var b strings.Builder
		marker := " "
		if sc == s.CurrentScale {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s scale %c ", marker, 'A'+sc)
		for d := 0; d < engine.ScaleLen; d++ {
			if s.ScaleButtons[sc][d] {
				b.WriteString(on.Render(fmt.Sprintf("%-3s", noteNames[d])))
			} else {
				b.WriteString(fmt.Sprintf("%-3s", "."))
			}
		}
		if s.Octave[sc] {
			b.WriteString(" +oct")
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMatrix(s sequencer.Status) string {
	grid := m.Manager.GridView()
	bank := grid.Bank()
	dests := grid.PageDests()
	snap := s.Matrix.Snapshot[bank]

	v := widgets.MatrixView{
		Rows:      sourceNames[bank][:],
		CursorRow: m.cursorRow,
		CursorCol: min(m.cursorCol, len(dests)-1),
	}
	for _, d := range dests {
		v.Cols = append(v.Cols, d.String())
	}
	for r := 0; r < matrix.Rows; r++ {
		row := make([]bool, len(dests))
		for c, d := range dests {
			row[c] = s.Matrix.Cells[bank][snap][r][d] != 0
		}
		v.Cells = append(v.Cells, row)
		v.Active = append(v.Active, sequencer.SourceActive(s, bank, r))
	}

	bankName := "note"
	if bank == matrix.ModBank {
		bankName = "mod"
	}
	flags := ""
	if s.Matrix.Muted[bank] {
		flags += " muted"
	}
	if s.Matrix.Inverted[bank] {
		flags += " inverted"
	}
	title := fmt.Sprintf("bank:%s  snapshot:%d  page:%d%s", bankName, snap+1, grid.Page()+1, flags)

	sym := m.Theme.Symbols
	hot := lipgloss.NewStyle().Foreground(m.Theme.Active())
	return title + "\n" + widgets.RenderMatrix(v, sym.CellOn, sym.CellOff, sym.CursorOn, sym.Cursor, hot)
}

func (m Model) help() string {
	common := "tab:page  p:play  e:clock  R/S/A/B:gates  1-6:voices  ^s/^o/^d:preset  q:quit"
	if m.page == pageParams {
		return "↑↓:select  ←→:adjust (shift ×10)  zsxdcvgbhnjm:scale notes\n" + common
	}
	return "arrows:move  space:toggle  .:bank  ,:page  m:mute  i:invert  X:clear  *:random  !@#$:snapshot\n" + common
}

func padGrid(leds []sequencer.LEDState) widgets.PadGrid {
	var g widgets.PadGrid
	for _, l := range leds {
		if l.Row >= 0 && l.Row < 9 && l.Col >= 0 && l.Col < 9 {
			g[l.Row][l.Col] = l.Color
		}
	}
	return g
}

func noteName(pitch int) string {
	if pitch < 0 || pitch > 127 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}
