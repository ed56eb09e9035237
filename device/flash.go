package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"i4.energy/across/xload/xva"
)

// FlashResult summarizes a completed flash load.
type FlashResult struct {
	Kind  xva.FlashKind
	Pages int
	// BadPages counts pages whose status was not OK. The load continues
	// past them.
	BadPages int
	// Bytes is the number of bytes taken from the input before zero padding.
	Bytes int
}

// LoadFlash programs one flash region from r.
//
// The input is zero padded or truncated to the region size. The transport is
// reopened with real-time latency (at the image baud rate for images) for
// the duration of the load and the previous mode is restored afterwards,
// also on failure.
//
// Pages with a non-OK status are counted in FlashResult.BadPages and do not
// abort the load. Transport failures do.
func (d *Device) LoadFlash(ctx context.Context, kind xva.FlashKind, r io.Reader) (res FlashResult, err error) {
	region, err := xva.RegionFor(kind)
	if err != nil {
		return res, err
	}
	if err := d.ready(); err != nil {
		return res, err
	}

	buf := make([]byte, region.Size)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return res, fmt.Errorf("read %s file: %w", kind, err)
	}
	res = FlashResult{Kind: kind, Pages: region.Pages, Bytes: n}

	mode := Mode{BaudRate: d.config.baudRate, Latency: LatencyRealTime}
	if kind == xva.FlashImage {
		mode.BaudRate = d.config.imageBaudRate
	}
	restore, err := d.switchMode(ctx, mode)
	if err != nil {
		return res, err
	}
	defer func() {
		err = errors.Join(err, restore())
	}()

	d.logger.Info("flash load started", "kind", kind, "pages", region.Pages, "bytes", n)
	start := time.Now()

	if err := d.write("flash erase", []byte{region.Erase}); err != nil {
		return res, err
	}
	status, err := d.readByte("flash erase")
	if err != nil {
		return res, err
	}
	d.report(Progress{Phase: PhaseFlashErase, Current: 1, Total: 1, Status: status, Elapsed: time.Since(start)})
	if status != xva.StatusOK {
		return res, &RejectedError{Op: "flash erase", Status: status, Want: xva.StatusOK}
	}

	if err := d.write("flash write", []byte{region.Write}); err != nil {
		return res, err
	}
	for i := 0; i < region.Pages; i++ {
		page := buf[i*xva.PageSize : (i+1)*xva.PageSize]
		if region.ByteAck {
			status, err = d.writePageBytewise(page)
		} else {
			status, err = d.writePage(page)
		}
		if err != nil {
			return res, fmt.Errorf("page %d: %w", i, err)
		}
		if status != xva.StatusOK {
			res.BadPages++
			d.logger.Debug("bad flash page", "kind", kind, "page", i, "status", status)
		}
		d.report(Progress{
			Phase:   PhaseFlashWrite,
			Current: i + 1,
			Total:   region.Pages,
			Status:  status,
			Bad:     res.BadPages,
			Elapsed: time.Since(start),
		})
	}

	status, err = d.readByte("flash write")
	if err != nil {
		return res, err
	}
	if status != xva.StatusOK {
		return res, &RejectedError{Op: "flash write", Status: status, Want: xva.StatusOK}
	}

	d.logger.Info("flash load finished", "kind", kind, "bad_pages", res.BadPages, "elapsed", time.Since(start))
	return res, nil
}

// writePage sends a page as its first byte, a settle delay while the loader
// prepares the page, and the remaining bytes. One status byte follows.
func (d *Device) writePage(page []byte) (byte, error) {
	if err := d.write("flash write", page[:1]); err != nil {
		return 0, err
	}
	d.config.sleep(d.config.delays.FirstByteSettle)
	if err := d.write("flash write", page[1:]); err != nil {
		return 0, err
	}
	return d.readByte("flash write")
}

// writePageBytewise sends a page one byte at a time, each acknowledged by a
// status byte. The first non-OK status of the page is returned.
func (d *Device) writePageBytewise(page []byte) (byte, error) {
	var status byte = xva.StatusOK
	for j := range page {
		if err := d.write("flash write", page[j:j+1]); err != nil {
			return 0, err
		}
		s, err := d.readByte("flash write")
		if err != nil {
			return 0, err
		}
		if s != xva.StatusOK && status == xva.StatusOK {
			status = s
		}
	}
	return status, nil
}
