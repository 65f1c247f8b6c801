package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
)

// recordMagic identifies a well-formed record frame; it is the first check
// Load performs before trusting anything else in the buffer.
const recordMagic uint32 = 0x5347_5354 // "SGST"

const recordVersion uint8 = 1

// headerLen is magic(4) + version(1) + kind(1) + length(4) + crc32(4),
// padded to the 16-byte alignment boundary §4.1/§9 requires for the
// archive's record images.
const headerLen = 16

// EntityKind tags which entity a record frame encodes.
type EntityKind uint8

const (
	KindResource EntityKind = iota
	KindSpan
	KindSpanEvent
	KindEvent
)

// EncodeRecord builds a validated, 16-byte-aligned byte image of payload:
// a fixed header (magic, version, kind, length, IEEE CRC-32 of the payload)
// followed by the JSON-encoded entity. Go has no sound way to cast a byte
// slice directly onto a struct without violating alignment/aliasing rules
// the way Rust's rkyv does (see original_source/.../storage/file/db_model.rs,
// which this package's "copy-on-read, validate-once" strategy exists to
// replace) — encoding/binary plus hash/crc32 are standard library because
// no zero-copy serialization framework appears anywhere in the example
// corpus (see DESIGN.md).
func EncodeRecord(kind EntityKind, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("storage: encode record: %w", err)
	}

	buf := make([]byte, headerLen+len(body))
	binary.BigEndian.PutUint32(buf[0:4], recordMagic)
	buf[4] = recordVersion
	buf[5] = byte(kind)
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(body)))
	binary.BigEndian.PutUint32(buf[10:14], crc32.ChecksumIEEE(body))
	// buf[14:16] reserved, zero-filled, keeps the payload starting at a
	// 16-byte-aligned offset.
	copy(buf[headerLen:], body)
	return buf, nil
}

// DecodeRecord validates the frame header (magic, version, length, CRC)
// before unmarshaling the payload into out. This is the "validate-once" half
// of the strategy: once decoded here, the caller's struct is plain Go memory
// and needs no further validation on every field access.
func DecodeRecord(buf []byte, out any) (EntityKind, error) {
	if len(buf) < headerLen {
		return 0, fmt.Errorf("storage: record too short: %d bytes", len(buf))
	}
	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != recordMagic {
		return 0, fmt.Errorf("storage: bad record magic %#x", magic)
	}
	version := buf[4]
	if version != recordVersion {
		return 0, fmt.Errorf("storage: unsupported record version %d", version)
	}
	kind := EntityKind(buf[5])
	length := binary.BigEndian.Uint32(buf[6:10])
	wantCRC := binary.BigEndian.Uint32(buf[10:14])

	if uint32(len(buf)-headerLen) != length {
		return 0, fmt.Errorf("storage: record length mismatch: header says %d, have %d", length, len(buf)-headerLen)
	}
	body := buf[headerLen:]
	if gotCRC := crc32.ChecksumIEEE(body); gotCRC != wantCRC {
		return 0, fmt.Errorf("storage: record CRC mismatch: corrupted on disk")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return 0, fmt.Errorf("storage: decode record payload: %w", err)
	}
	return kind, nil
}
