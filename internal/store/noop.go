package store

import "context"

// Noop discards everything.
type Noop struct{}

func (Noop) SaveInstruments(ctx context.Context, batch InstrumentBatch) error { return nil }
func (Noop) SaveEntities(ctx context.Context, batch EntityBatch) error { return nil }
func (Noop) History(ctx context.Context, limit int) ([]Run, error) { return nil, nil }
func (Noop) Close(ctx context.Context) error { return nil }

func (Noop) Instruments(ctx context.Context, numeroConvenio string) ([]StoredInstrument, error) {
	return nil, nil
}
