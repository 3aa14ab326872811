package midi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"orcas-heart/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrPortNotFound is returned when a named port is not present
var ErrPortNotFound = errors.New("port not found")

// DeviceEvent is emitted when a grid, the voice output or the clock input
// appears or goes away
type DeviceEvent struct {
	Type       DeviceEventType
	ID         string
	Controller Controller // grid events
	Output     *Output    // OutputConnected
	Input      *Input     // InputConnected
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
	OutputConnected
	OutputDisconnected
	InputConnected
	InputDisconnected
)

// PortConfig names the ports the manager keeps open
type PortConfig struct {
	OutputPort string
	Channels   []int
	InputPort  string
	Decoder    Decoder
}

// PortManager polls the MIDI ports and keeps grids, the voice output and the
// clock input open as they come and go
type PortManager struct {
	cfg         PortConfig
	controllers map[string]Controller
	output      *Output
	input       *Input
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
}

// NewPortManager creates a port manager; call Run to start polling
func NewPortManager(cfg PortConfig) *PortManager {
	return &PortManager{
		cfg:         cfg,
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
	}
}

// Events returns a channel of connect/disconnect events
func (pm *PortManager) Events() <-chan DeviceEvent {
	return pm.events
}

// Controllers returns a snapshot of connected grids
func (pm *PortManager) Controllers() map[string]Controller {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make(map[string]Controller, len(pm.controllers))
	for k, v := range pm.controllers {
		out[k] = v
	}
	return out
}

// Output returns the open voice output, or nil
func (pm *PortManager) Output() *Output {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.output
}

// Run starts the polling loop (blocking - run in goroutine)
func (pm *PortManager) Run(ctx context.Context) {
	ticker := time.NewTicker(pm.pollRate)
	defer ticker.Stop()

	pm.scan()

	for {
		select {
		case <-ctx.Done():
			pm.closeAll()
			close(pm.events)
			return
		case <-ticker.C:
			pm.scan()
		}
	}
}

// ListPorts returns the current ports, or ok=false if the driver hangs
func ListPorts() (ins []drivers.In, outs []drivers.Out, ok bool) {
	type portsResult struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, true
	case <-time.After(3 * time.Second):
		debug.Log("ports", "port scan timed out")
		return nil, nil, false
	}
}

func (pm *PortManager) scan() {
	inPorts, outPorts, ok := ListPorts()
	if !ok {
		return
	}

	var pending []DeviceEvent
	pending = append(pending, pm.scanGrids(inPorts, outPorts)...)
	pending = append(pending, pm.scanOutput(outPorts)...)
	pending = append(pending, pm.scanInput(inPorts)...)

	for _, evt := range pending {
		pm.events <- evt
	}
}

func (pm *PortManager) scanGrids(inPorts []drivers.In, outPorts []drivers.Out) []DeviceEvent {
	var events []DeviceEvent
	seen := make(map[string]bool)

	for i, inPort := range inPorts {
		if !isLaunchpad(inPort.String()) {
			continue
		}
		id := inPort.String()
		seen[id] = true

		pm.mu.RLock()
		_, exists := pm.controllers[id]
		pm.mu.RUnlock()
		if exists {
			continue
		}

		var outPort drivers.Out
		for j, op := range outPorts {
			if strings.EqualFold(op.String(), id) {
				outPort = outPorts[j]
				break
			}
		}

		lp, err := NewLaunchpadController(id, inPorts[i], outPort)
		if err != nil {
			debug.Log("ports", "grid %s: %v", id, err)
			continue
		}

		pm.mu.Lock()
		pm.controllers[id] = lp
		pm.mu.Unlock()
		events = append(events, DeviceEvent{Type: DeviceConnected, Controller: lp, ID: id})
	}

	pm.mu.Lock()
	for id, c := range pm.controllers {
		if seen[id] {
			continue
		}
		c.Close()
		delete(pm.controllers, id)
		events = append(events, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
	pm.mu.Unlock()
	return events
}

func (pm *PortManager) scanOutput(outPorts []drivers.Out) []DeviceEvent {
	name := pm.cfg.OutputPort
	if name == "" {
		return nil
	}
	var port drivers.Out
	for _, op := range outPorts {
		if op.String() == name {
			port = op
			break
		}
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	switch {
	case port != nil && pm.output == nil:
		out, err := NewOutput(port, pm.cfg.Channels)
		if err != nil {
			debug.Log("ports", "%v", err)
			return nil
		}
		pm.output = out
		return []DeviceEvent{{Type: OutputConnected, ID: name, Output: out}}
	case port == nil && pm.output != nil:
		if err := pm.output.Close(); err != nil {
			debug.Log("ports", "close output %s: %v", name, err)
		}
		pm.output = nil
		return []DeviceEvent{{Type: OutputDisconnected, ID: name}}
	}
	return nil
}

func (pm *PortManager) scanInput(inPorts []drivers.In) []DeviceEvent {
	name := pm.cfg.InputPort
	if name == "" {
		return nil
	}
	var port drivers.In
	for _, ip := range inPorts {
		if ip.String() == name {
			port = ip
			break
		}
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	switch {
	case port != nil && pm.input == nil:
		in, err := NewInput(port, pm.cfg.Decoder)
		if err != nil {
			debug.Log("ports", "%v", err)
			return nil
		}
		pm.input = in
		return []DeviceEvent{{Type: InputConnected, ID: name, Input: in}}
	case port == nil && pm.input != nil:
		pm.input.Close()
		pm.input = nil
		return []DeviceEvent{{Type: InputDisconnected, ID: name}}
	}
	return nil
}

func (pm *PortManager) closeAll() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, c := range pm.controllers {
		c.Close()
	}
	pm.controllers = make(map[string]Controller)
	if pm.input != nil {
		pm.input.Close()
		pm.input = nil
	}
	if pm.output != nil {
		pm.output.Close()
		pm.output = nil
	}
}
