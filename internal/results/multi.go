package results

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
)

// Multi records every curve to each sink in order. All sinks are attempted;
// their errors are joined.
type Multi []learner.Sink

func (m Multi) Record(ctx context.Context, curve learner.Curve) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, curve); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordAll hands curves to each sink, as one batch when the sink supports it.
func (m Multi) RecordAll(ctx context.Context, curves []learner.Curve) error {
	var errs []error
	for _, s := range m {
		if err := recordAll(ctx, s, curves); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func recordAll(ctx context.Context, s learner.Sink, curves []learner.Curve) error {
	if bs, ok := s.(learner.BatchSink); ok {
		return bs.RecordAll(ctx, curves)
	}
	for _, c := range curves {
		if err := s.Record(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
