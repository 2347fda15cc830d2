package chrono

import (
	"context"
	"testing"
	"time"
	"transferegov-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestStandardImpl(t *testing.T) {
	clock, err := NewStandardImpl()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, PortalTimezone, clock.Location().String())
	require.Equal(t, clock.Location(), clock.Now().Location())
	require.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}

func TestStandardCron(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cron := NewStandardCron(ctx, FixedImpl{Time: time.Now().UTC()}, &telemetry.RecordingAPI{})
	require.Error(t, cron.Cron("not a spec", func() {}))

	ticks := make(chan struct{}, 1)
	err := cron.Cron("@every 1s", func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	select {
	case <-ticks:
	case <-time.After(5 * time.Second):
		t.Fatal("cron job never ran")
	}
}
