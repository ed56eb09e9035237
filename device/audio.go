package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"i4.energy/across/xload/wav"
	"i4.energy/across/xload/xva"
)

// Record captures the synthesizer's audio stream into a WAV file on w until
// stop returns true or ctx is done. Both are checked once per chunk, so a
// stop takes effect within one chunk.
//
// Stopping is not an error. The stream is always stopped, the WAV lengths
// patched and the previous mode restored, also when the capture fails.
// Record returns the number of sample bytes captured.
func (d *Device) Record(ctx context.Context, w io.WriteSeeker, stop func() bool) (n int64, err error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	if stop == nil {
		stop = func() bool { return false }
	}

	restore, err := d.switchMode(ctx, Mode{BaudRate: d.config.baudRate, Latency: LatencyRealTime})
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, restore())
	}()

	ww, err := wav.NewWriter(w)
	if err != nil {
		return 0, err
	}

	err = d.capture(ctx, ww, stop)

	if _, stopErr := d.transact(xva.OpStreamStop); stopErr != nil {
		err = errors.Join(err, fmt.Errorf("stop stream: %w", stopErr))
	}
	if closeErr := ww.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return ww.Len(), err
}

func (d *Device) capture(ctx context.Context, ww *wav.Writer, stop func() bool) error {
	if _, err := d.transact(xva.OpStreamInit); err != nil {
		return err
	}
	if _, err := d.transact(xva.OpStreamStart); err != nil {
		return err
	}
	d.logger.Info("recording started")

	start := time.Now()
	chunk := make([]byte, xva.AudioChunkSize)
	for chunks := 0; ; chunks++ {
		if stop() || ctx.Err() != nil {
			d.logger.Info("recording stopped", "bytes", ww.Len(), "elapsed", time.Since(start))
			return nil
		}
		if err := d.read("record", chunk); err != nil {
			return err
		}
		if _, err := ww.Write(chunk); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
		d.report(Progress{Phase: PhaseRecord, Current: chunks + 1, Elapsed: time.Since(start)})
	}
}
