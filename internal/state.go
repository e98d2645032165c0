// v1
// state.go
package internal

import "sync"

// VehicleState stores the latest value of each asynchronous perception
// input, protected by a RWMutex so update handlers can write their own
// field while the control loop takes consistent per-tick snapshots.
// Ownership is handler-exclusive per field; the loop only reads.
type VehicleState struct {
	mu         sync.RWMutex
	signal     string
	crosswalk  float64
	velocity   float64
	steering   float64
	frame      []byte
	frameReady bool
}

// NewVehicleState returns a state record with zero/empty defaults. The
// loop stays idle until the first camera frame flips frameReady.
func NewVehicleState() *VehicleState {
	return &VehicleState{}
}

// Snapshot is a consistent copy of the fields the decision policy and
// control loop read at the start of a tick. The raw frame bytes are
// deliberately excluded: the policy never dereferences the frame.
type Snapshot struct {
	Signal     string
	Crosswalk  float64
	Velocity   float64
	Steering   float64
	FrameReady bool
}

func (s *VehicleState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Signal:     s.signal,
		Crosswalk:  s.crosswalk,
		Velocity:   s.velocity,
		Steering:   s.steering,
		FrameReady: s.frameReady,
	}
}

func (s *VehicleState) SetSignal(signal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = signal
}

func (s *VehicleState) SetCrosswalk(confidence float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crosswalk = confidence
}

// SetModelCommand assigns both fields decoded from the combined
// steering/velocity message.
func (s *VehicleState) SetModelCommand(steering, velocity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steering = steering
	s.velocity = velocity
}

// SetFrame replaces the latest camera frame and marks the vehicle
// operational. The slice is stored as-is; callers must hand over
// ownership of the buffer.
func (s *VehicleState) SetFrame(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	s.frameReady = true
}

// Frame returns the latest camera frame for display purposes, or nil
// if none has arrived yet.
func (s *VehicleState) Frame() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}
