// v1
// models.go
package internal

// Traffic-sign labels published by the signal classifier.
const (
	SignalForward = "ForwardPermitted"
	SignalStop    = "StopPermitted"
	SignalChess   = "ChessboardMarker"
)

// ModelCommand is the steering/velocity pair reported by the driving model.
// Wire format: JSON text on the model command topic.
type ModelCommand struct {
	Steering float64 `json:"steering"`
	Velocity float64 `json:"velocity"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is the actuation command published once per tick while Active.
// Only linear.x (velocity) and angular.z (steering) are ever non-zero.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// NewTwist builds the six-component actuation command from a
// velocity/steering pair.
func NewTwist(velocity, steering float64) Twist {
	return Twist{Linear: Vector3{X: velocity}, Angular: Vector3{Z: steering}}
}

// LedgerEvent records one decision transition on the drive ledger topic.
type LedgerEvent struct {
	Signal      string  `json:"signal"`
	Crosswalk   float64 `json:"crosswalk"`
	Velocity    float64 `json:"velocity"`
	Steering    float64 `json:"steering"`
	Reason      string  `json:"reason"`
	HoldMs      int64   `json:"holdMs"`
	Terminating bool    `json:"terminating"`
	Timestamp   int64   `json:"timestamp"`
}

type Stats struct {
	Ticks        int64 `json:"ticks"`
	IdleSkips    int64 `json:"idleSkips"`
	CommandsOut  int64 `json:"commandsOut"`
	Holds        int64 `json:"holds"`
	DecodeErrors int64 `json:"decodeErrors"`
	LedgerWrites int64 `json:"ledgerWrites"`
}
