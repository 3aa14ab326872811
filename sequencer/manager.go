package sequencer

import (
	"sync"
	"sync/atomic"
	"time"

	"orcas-heart/debug"
	"orcas-heart/engine"
	"orcas-heart/midi"
)

// Sink receives voice events
type Sink interface {
	Send(evt midi.Event) error
}

// panicker is a sink that can silence every channel at once
type panicker interface {
	Panic() error
}

// Manager runs a Controller: the internal or external clock, voice note-off
// timers, grid LEDs and preset I/O. Every Controller call goes through mu.
type Manager struct {
	ctrl *Controller
	grid Grid
	mu   sync.Mutex

	sink   Sink
	sinkMu sync.RWMutex
	sendMu sync.Mutex // taken before mu is released so the wire order matches the controller

	playing      bool
	external     bool
	clockDivider int
	pulses       int
	ticking      atomic.Bool
	clockStop    chan struct{}

	timers  [engine.NoteCount]*time.Timer
	timerMu sync.Mutex

	controller  midi.Controller
	ctrlMu      sync.Mutex
	ledDirty    bool
	prevLEDs    map[[2]int]LEDState
	ledStopChan chan struct{}

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// LED refresh rate
const ledFPS = 30

// MIDI clock pulses per engine step by default (one step per 16th note)
const DefaultClockDivider = 6

// NewManager creates a manager around a controller
func NewManager(ctrl *Controller) *Manager {
	return &Manager{
		ctrl:         ctrl,
		clockDivider: DefaultClockDivider,
		prevLEDs:     make(map[[2]int]LEDState),
		UpdateChan:   make(chan struct{}, 1),
	}
}

// StartRuntime starts the LED loop (called once at startup)
func (m *Manager) StartRuntime() {
	m.ledStopChan = make(chan struct{})
	go m.ledLoop()
}

// Close stops playback, silences the sink and stops the runtime goroutines
func (m *Manager) Close() {
	m.Stop()
	m.sinkMu.RLock()
	sink := m.sink
	m.sinkMu.RUnlock()
	if p, ok := sink.(panicker); ok {
		if err := p.Panic(); err != nil {
			debug.Log("sink", "panic: %v", err)
		}
	}
	if m.ledStopChan != nil {
		close(m.ledStopChan)
		m.ledStopChan = nil
	}
}

// SetSink sets where voice events go; nil drops them
func (m *Manager) SetSink(s Sink) {
	m.sinkMu.Lock()
	m.sink = s
	m.sinkMu.Unlock()
}

// SetClockDivider sets how many external clock pulses make one step
func (m *Manager) SetClockDivider(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.clockDivider = n
	m.pulses = 0
	m.mu.Unlock()
}

// ExternalClock switches between the internal timer and incoming clock pulses
func (m *Manager) ExternalClock(on bool) {
	m.mu.Lock()
	if m.external == on {
		m.mu.Unlock()
		return
	}
	m.external = on
	playing := m.playing
	m.mu.Unlock()

	if !playing {
		return
	}
	if on {
		m.stopClock()
	} else {
		m.startClock()
	}
}

// Play starts playback
func (m *Manager) Play() {
	m.mu.Lock()
	if m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = true
	m.pulses = 0
	external := m.external
	m.mu.Unlock()

	debug.Log("transport", "play external=%v", external)
	if !external {
		m.startClock()
	}
	m.notifyUpdate()
}

// Stop stops playback and silences every voice
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = false
	m.flush(m.ctrl.AllNotesOff())

	m.stopClock()
	m.cancelTimers()
	debug.Log("transport", "stop")
	m.notifyUpdate()
}

func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Reset zeroes the engine counters; the next tick starts a new cycle
func (m *Manager) Reset() {
	m.mu.Lock()
	m.ctrl.Reset()
	m.pulses = 0
	m.mu.Unlock()
	m.notifyUpdate()
}

func (m *Manager) startClock() {
	stop := make(chan struct{})
	m.mu.Lock()
	if m.clockStop != nil {
		m.mu.Unlock()
		return
	}
	m.clockStop = stop
	m.mu.Unlock()
	go m.clockLoop(stop)
}

func (m *Manager) stopClock() {
	m.mu.Lock()
	stop := m.clockStop
	m.clockStop = nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// clockLoop ticks at the controller's interval, re-read after every tick so
// knob and matrix speed changes apply on the next step
func (m *Manager) clockLoop(stop chan struct{}) {
	timer := time.NewTimer(m.Interval())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			select {
			case <-stop:
				return
			default:
			}
			m.Tick()
			timer.Reset(m.Interval())
		}
	}
}

// Interval is the current internal clock period
func (m *Manager) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctrl.Interval()
}

// Tick runs one step. A tick arriving while one is still running is dropped.
func (m *Manager) Tick() {
	if !m.ticking.CompareAndSwap(false, true) {
		debug.Log("clock", "tick dropped, previous still running")
		return
	}
	defer m.ticking.Store(false)

	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return
	}
	m.flush(m.ctrl.Step())
	debug.LogEvery(64, "clock", "step")
	m.notifyUpdate()
}

// flush arms a note-off timer for every timed note and sends the events.
// It must be called with mu held and returns with mu released.
func (m *Manager) flush(events []midi.Event) {
	for _, evt := range events {
		switch evt.Type {
		case midi.NoteOff:
			m.cancelTimer(evt.Voice)
		case midi.NoteOn:
			m.cancelTimer(evt.Voice)
			if evt.GateTime > 0 {
				m.armTimer(evt.Voice, evt.Seq, evt.GateTime)
			}
		}
	}
	m.sendMu.Lock()
	m.mu.Unlock()
	defer m.sendMu.Unlock()
	for _, evt := range events {
		m.send(evt)
	}
}

func (m *Manager) send(evt midi.Event) {
	m.sinkMu.RLock()
	sink := m.sink
	m.sinkMu.RUnlock()
	if sink == nil {
		return
	}
	if err := sink.Send(evt); err != nil {
		debug.Log("sink", "voice %d: %v", evt.Voice, err)
	}
}

func (m *Manager) armTimer(voice int, seq uint64, after time.Duration) {
	if voice < 0 || voice >= engine.NoteCount {
		return
	}
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	m.timers[voice] = time.AfterFunc(after, func() {
		m.mu.Lock()
		evt, ok := m.ctrl.Release(voice, seq)
		if !ok {
			m.mu.Unlock()
			return
		}
		m.flush([]midi.Event{evt})
	})
}

func (m *Manager) cancelTimer(voice int) {
	if voice < 0 || voice >= engine.NoteCount {
		return
	}
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if t := m.timers[voice]; t != nil {
		t.Stop()
		m.timers[voice] = nil
	}
}

func (m *Manager) cancelTimers() {
	for v := 0; v < engine.NoteCount; v++ {
		m.cancelTimer(v)
	}
}

// HandleInput routes a decoded MIDI input event
func (m *Manager) HandleInput(evt midi.InputEvent) {
	switch evt.Type {
	case midi.InputClock:
		m.mu.Lock()
		fire := false
		if m.external && m.playing {
			m.pulses++
			if m.pulses >= m.clockDivider {
				m.pulses = 0
				fire = true
			}
		}
		m.mu.Unlock()
		if fire {
			m.Tick()
		}
	case midi.InputStart:
		m.Reset()
		if m.isExternal() {
			m.Play()
		}
	case midi.InputStop:
		if m.isExternal() {
			m.Stop()
		}
	case midi.InputGate:
		m.Update(func(c *Controller) { c.ProcessGate(evt.Index) })
	case midi.InputKnob:
		m.Update(func(c *Controller) { c.SetKnob(evt.Value) })
	}
}

func (m *Manager) isExternal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.external
}

// Update runs fn against the controller under the lock, then refreshes views
func (m *Manager) Update(fn func(c *Controller)) {
	m.mu.Lock()
	fn(m.ctrl)
	m.mu.Unlock()
	m.notifyUpdate()
}

// UpdateEvents is Update for mutations that release notes
func (m *Manager) UpdateEvents(fn func(c *Controller) []midi.Event) {
	m.mu.Lock()
	m.flush(fn(m.ctrl))
	m.notifyUpdate()
}

// Snapshot returns a copy of the controller state for rendering
func (m *Manager) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.ctrl.Status()
	s.Playing = m.playing
	s.External = m.external
	return s
}

// Presets

// SavePreset writes the current setup to dir
func (m *Manager) SavePreset(dir, name string) (string, error) {
	m.mu.Lock()
	p := m.ctrl.Preset()
	m.mu.Unlock()
	filename, err := SavePreset(dir, name, p)
	if err != nil {
		return "", err
	}
	debug.Log("preset", "saved %s", filename)
	return filename, nil
}

// LoadPreset loads a preset file (the newest if filename is empty) and
// returns the file it loaded
func (m *Manager) LoadPreset(dir, filename string) (string, error) {
	if filename == "" {
		newest, err := NewestPreset(dir)
		if err != nil {
			return "", err
		}
		filename = newest
	}
	p, err := LoadPreset(dir, filename)
	if err != nil {
		return "", err
	}
	m.cancelTimers()
	m.UpdateEvents(func(c *Controller) []midi.Event { return c.ApplyPreset(p) })
	debug.Log("preset", "loaded %s", filename)
	return filename, nil
}

// DeletePreset removes a preset file from dir
func (m *Manager) DeletePreset(dir, filename string) error {
	if err := DeletePreset(dir, filename); err != nil {
		return err
	}
	debug.Log("preset", "deleted %s", filename)
	return nil
}

// Grid

// SetController sets the grid controller for LED feedback
func (m *Manager) SetController(c midi.Controller) {
	debug.Log("ctrl", "SetController called, resetting diff state")
	m.ctrlMu.Lock()
	m.controller = c
	m.prevLEDs = make(map[[2]int]LEDState)
	m.ledDirty = c != nil
	m.ctrlMu.Unlock()
}

// HandlePad routes a grid press to the matrix surface
func (m *Manager) HandlePad(row, col int) {
	m.mu.Lock()
	changed := m.grid.HandlePad(m.ctrl, row, col)
	m.mu.Unlock()
	if changed {
		m.notifyUpdate()
	}
}

// GridView returns a copy of the grid's bank and page selection
func (m *Manager) GridView() Grid {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grid
}

// SelectBank switches the grid bank
func (m *Manager) SelectBank(bank int) {
	m.mu.Lock()
	m.grid.SelectBank(bank)
	m.mu.Unlock()
	m.notifyUpdate()
}

// NextPage flips the grid to the next destination page
func (m *Manager) NextPage() {
	m.mu.Lock()
	m.grid.NextPage()
	m.mu.Unlock()
	m.notifyUpdate()
}

// GridLEDs renders the grid surface for the current state
func (m *Manager) GridLEDs() []LEDState {
	s := m.Snapshot()
	m.mu.Lock()
	g := m.grid
	m.mu.Unlock()
	return g.RenderLEDs(s)
}

func (m *Manager) markLEDsDirty() {
	m.ctrlMu.Lock()
	m.ledDirty = true
	m.ctrlMu.Unlock()
}

// ledLoop runs at fixed FPS and flushes LED updates
func (m *Manager) ledLoop() {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	stop := m.ledStopChan
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.ctrlMu.Lock()
			dirty := m.ledDirty && m.controller != nil
			m.ledDirty = false
			m.ctrlMu.Unlock()

			if dirty {
				m.flushLEDs()
			}
		}
	}
}

// flushLEDs sends only changed LEDs to the controller (diffing + batching)
func (m *Manager) flushLEDs() {
	leds := m.GridLEDs()

	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	if m.controller == nil {
		return
	}

	updates, next := diffLEDs(m.prevLEDs, leds)
	if len(updates) > 0 {
		debug.Log("led", "flushLEDs: batch=%d prev=%d", len(updates), len(m.prevLEDs))
		if err := m.controller.SetLEDBatch(updates); err != nil {
			debug.Log("led", "%v", err)
		}
	}
	m.prevLEDs = next
}

// diffLEDs returns the updates that turn prev into leds, and the new state
func diffLEDs(prev map[[2]int]LEDState, leds []LEDState) ([]midi.LEDUpdate, map[[2]int]LEDState) {
	next := make(map[[2]int]LEDState, len(leds))
	var updates []midi.LEDUpdate

	for _, led := range leds {
		key := [2]int{led.Row, led.Col}
		next[key] = led
		if old, ok := prev[key]; !ok || old != led {
			updates = append(updates, midi.LEDUpdate{
				Row:     led.Row,
				Col:     led.Col,
				Color:   led.Color,
				Channel: led.Channel,
			})
		}
	}

	// Clear LEDs that are no longer present
	for key := range prev {
		if _, ok := next[key]; !ok {
			updates = append(updates, midi.LEDUpdate{Row: key[0], Col: key[1]})
		}
	}
	return updates, next
}

// notifyUpdate refreshes LEDs and notifies TUI
func (m *Manager) notifyUpdate() {
	m.markLEDsDirty()
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
