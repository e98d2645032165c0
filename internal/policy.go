// v1
// policy.go
package internal

import "time"

// PolicyConfig holds the immutable decision tunables, loaded once at
// startup. CruiseVelocity comes from the model metadata record
// (dataset.linear_velocity); the crosswalk tunables come from the
// properties file.
type PolicyConfig struct {
	CruiseVelocity     float64
	CrosswalkThreshold float64
	CrosswalkStop      time.Duration
	CrosswalkTimeout   time.Duration
}

// Decision is the policy verdict for one tick. A non-zero Hold asks the
// control loop to suspend command emission for that long before
// applying the velocity/steering pair; Terminate asks it to enter the
// shutdown sequence after the hold elapses. Reason is empty for the
// pass-through case and names the matched rule otherwise.
type Decision struct {
	Velocity  float64
	Steering  float64
	Hold      time.Duration
	Terminate bool
	Reason    string
}

// Decide evaluates the signal-conditioned speed rule and the
// crosswalk-gated stop rule against a state snapshot. Rules are tried
// in priority order; the first match wins:
//
//  1. ForwardPermitted while not already cruising resumes the cruise
//     velocity.
//  2. StopPermitted over a sufficiently sure crosswalk holds for the
//     stop duration, then commands velocity 0.
//  3. ChessboardMarker over a sufficiently sure crosswalk holds for
//     the timeout duration, then commands a graceful stop and
//     program termination.
//  4. Anything else passes the model-reported pair through unchanged.
//
// Steering always passes through except in rule 3, where it is forced
// to zero. Pure function: no clock, no I/O, no state mutation.
func Decide(snap Snapshot, lastApplied float64, cfg PolicyConfig) Decision {
	switch {
	case snap.Signal == SignalForward && lastApplied != cfg.CruiseVelocity:
		return Decision{
			Velocity: cfg.CruiseVelocity,
			Steering: snap.Steering,
			Reason:   "resume cruise",
		}
	case snap.Signal == SignalStop && snap.Crosswalk > cfg.CrosswalkThreshold:
		return Decision{
			Velocity: 0,
			Steering: snap.Steering,
			Hold:     cfg.CrosswalkStop,
			Reason:   "crosswalk stop",
		}
	case snap.Signal == SignalChess && snap.Crosswalk > cfg.CrosswalkThreshold:
		return Decision{
			Velocity:  0,
			Steering:  0,
			Hold:      cfg.CrosswalkTimeout,
			Terminate: true,
			Reason:    "chessboard terminate",
		}
	default:
		return Decision{Velocity: snap.Velocity, Steering: snap.Steering}
	}
}
