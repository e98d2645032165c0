// v1
// shutdown.go
package internal

import (
	"context"
	"fmt"
	"log/slog"
)

// ShutdownSequence is the one-shot procedure run when the operator
// aborts or the policy signals termination. Steps run strictly in
// order: graceful stop, comments prompt, rating prompt, metadata
// persist. Prompts are synchronous by requirement.
type ShutdownSequence struct {
	lg      *slog.Logger
	pub     Publisher
	meta    *ModelMetadata
	console *Console
}

func NewShutdownSequence(lg *slog.Logger, pub Publisher, meta *ModelMetadata, console *Console) *ShutdownSequence {
	return &ShutdownSequence{lg: lg, pub: pub, meta: meta, console: console}
}

// Run executes the sequence. The zero twist is published exactly once,
// before anything else: whatever happens to the feedback, the vehicle
// has been commanded to stop. A persistence failure is returned to the
// caller; the operator's feedback is lost and the process exits
// non-zero.
func (s *ShutdownSequence) Run(ctx context.Context) error {
	if err := s.pub.PublishTwist(ctx, NewTwist(0, 0)); err != nil {
		return fmt.Errorf("graceful stop: %w", err)
	}
	s.lg.Info("graceful stop published")

	comments := s.console.Prompt("[info.yaml] Additional comments about the model: ")
	s.meta.AppendComment(comments)

	rating := s.console.Prompt("[info.yaml] Evaluate the model on a scale from 0 (bad) to 10 (good): ")
	s.meta.AppendEval(rating)

	if err := s.meta.Save(); err != nil {
		s.lg.Error("metadata persist failed; operator feedback lost", "error", err)
		return err
	}
	s.lg.Info("model metadata updated", "comments", comments, "eval", rating+"/10")
	return nil
}
