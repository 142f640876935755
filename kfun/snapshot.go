package kfun

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ---------------------------------------------------------------------------
// Snapshot format
// ---------------------------------------------------------------------------
//
//	header  builtins int16 | extensions int16 | name bytes int16  (little-endian)
//	names   one NUL-terminated record per extension stable index, in index
//	        order from the extension offset: "<version>.<name>\0"
//
// Record i names the function holding stable index offset+i. The version
// digit is what lets a later build tell an old calling convention from the
// current one.

// SnapshotHeaderSize is the size of the snapshot header in bytes.
const SnapshotHeaderSize = 6

type snapshotHeader struct {
	Builtins   int16
	Extensions int16
	NameBytes  int16
}

// Dump writes the numbering of the extension index space to w. It never
// modifies the registry; on error the snapshot must be discarded.
func (r *Registry) Dump(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names bytes.Buffer
	n := 0
	// [offset, limit) has no holes: init and restore number it densely and
	// reclaim only frees from the top.
	for i := r.index.offset; i < r.index.limit; i++ {
		s, ok := r.index.slot(StableIndex(i))
		if !ok {
			continue
		}
		names.WriteString(r.table.Entry(s).Marker())
		names.WriteByte(0)
		n++
	}
	if n > math.MaxInt16 || names.Len() > math.MaxInt16 || r.table.builtins > math.MaxInt16 {
		return fmt.Errorf("%w: %d names in %d bytes", ErrSnapshotTooLarge, n, names.Len())
	}

	hdr := snapshotHeader{
		Builtins:   int16(r.table.builtins),
		Extensions: int16(n),
		NameBytes:  int16(names.Len()),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing kfun snapshot header: %w", err)
	}
	if _, err := w.Write(names.Bytes()); err != nil {
		return fmt.Errorf("writing kfun names: %w", err)
	}
	return nil
}

// Restore renumbers the extension index space from a snapshot written by
// Dump, possibly by another build. Every persisted stable index keeps
// naming its function; functions new to this build are numbered after the
// persisted range. Built-ins appended since the snapshot was written keep
// their own indices; a snapshot with more built-ins than this build is
// rejected as corrupt.
//
// A snapshot naming a function this build does not implement in any form
// yields an *UnknownFunctionError. Bytecode compiled against that index
// could not run, so the caller must not resume from the snapshot. On any
// error the registry is unchanged.
func (r *Registry) Restore(rd io.Reader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hdr snapshotHeader
	if err := binary.Read(rd, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("%w: header: %v", ErrCorruptSnapshot, err)
	}
	records, err := readRecords(rd, hdr)
	if err != nil {
		return err
	}

	t := r.table
	if int(hdr.Builtins) > t.builtins {
		return fmt.Errorf("%w: %d built-ins, driver has %d", ErrCorruptSnapshot, hdr.Builtins, t.builtins)
	}

	m := newIndexMap(t)
	if m.offset+len(records) > len(m.stableToRaw) {
		return fmt.Errorf("%w: %d extensions exceed index space", ErrCorruptSnapshot, len(records))
	}
	for i, rec := range records {
		idx := StableIndex(m.offset + i)
		s, ok := t.match(ParseMarker(rec))
		if !ok {
			return &UnknownFunctionError{Record: rec, Index: idx}
		}
		m.bind(idx, s)
	}
	m.limit = m.offset + len(records)

	// functions this build added since the snapshot was written
	var added []string
	for s := t.liveStart(); s < len(t.entries); s++ {
		if m.rawToStable[s].set {
			continue
		}
		if m.limit >= len(m.stableToRaw) {
			return fmt.Errorf("%w: numbering new kfun %q", ErrIndexSpace, t.entries[s].Name)
		}
		m.bind(StableIndex(m.limit), Slot(s))
		m.limit++
		added = append(added, t.entries[s].Name)
	}

	r.index = m

	r.log.Infof("restored %d kfuns from snapshot", len(records))
	for _, name := range added {
		r.log.Noticef("new kfun %s", name)
	}
	return nil
}

// readRecords reads the name block and splits it into exactly
// hdr.Extensions records.
func readRecords(rd io.Reader, hdr snapshotHeader) ([]string, error) {
	if hdr.Builtins < 0 || hdr.Extensions < 0 || hdr.NameBytes < 0 {
		return nil, fmt.Errorf("%w: negative count in header", ErrCorruptSnapshot)
	}
	buf := make([]byte, hdr.NameBytes)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return nil, fmt.Errorf("%w: cannot restore kfun names: %v", ErrCorruptSnapshot, err)
	}

	records := make([]string, 0, hdr.Extensions)
	for len(buf) > 0 {
		end := bytes.IndexByte(buf, 0)
		if end <= 0 {
			return nil, fmt.Errorf("%w: bad name record", ErrCorruptSnapshot)
		}
		records = append(records, string(buf[:end]))
		buf = buf[end+1:]
	}
	if len(records) != int(hdr.Extensions) {
		return nil, fmt.Errorf("%w: %d names, header says %d", ErrCorruptSnapshot,
			len(records), hdr.Extensions)
	}
	return records, nil
}
