// v1
// handlers.go
package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDecode marks a malformed inbound payload. Decode failures are
// local to the offending handler: the previous field value is retained
// and the loop keeps running on stale data.
var ErrDecode = errors.New("malformed payload")

// Handlers mutate exactly one VehicleState slot per inbound message.
// They are invoked from the transport's callback goroutine and must
// return immediately; no blocking, no validation beyond type decoding.
// Decode failures are logged one layer up, at the transport boundary.
type Handlers struct {
	state *VehicleState
}

func NewHandlers(state *VehicleState) *Handlers {
	return &Handlers{state: state}
}

// HandleSignal stores the latest classified traffic-sign label.
func (h *Handlers) HandleSignal(payload []byte) error {
	h.state.SetSignal(strings.TrimSpace(string(payload)))
	return nil
}

// HandleCrosswalk stores the latest crosswalk-presence confidence.
func (h *Handlers) HandleCrosswalk(payload []byte) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return fmt.Errorf("%w: crosswalk confidence %q: %v", ErrDecode, payload, err)
	}
	h.state.SetCrosswalk(v)
	return nil
}

// HandleModelCommand decodes the combined steering/velocity JSON
// message into its two state fields.
func (h *Handlers) HandleModelCommand(payload []byte) error {
	var cmd ModelCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: model command: %v", ErrDecode, err)
	}
	h.state.SetModelCommand(cmd.Steering, cmd.Velocity)
	return nil
}

// HandleFrame stores the encoded camera frame and marks the vehicle
// operational on the first (and every later) successful call.
func (h *Handlers) HandleFrame(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty frame", ErrDecode)
	}
	frame := make([]byte, len(payload))
	copy(frame, payload)
	h.state.SetFrame(frame)
	return nil
}
