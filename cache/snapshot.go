package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/internal/hash"
)

// Compression selects the snapshot payload compression.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd compresses the payload with zstd (default).
	CompressionZstd
	// CompressionLZ4 compresses the payload with lz4.
	CompressionLZ4
)

// Snapshot layout (little endian):
//
//	magic(4) version(2) compression(1) codecNameLen(1) codecName
//	crc32c(4, over the compressed payload) payloadLen(8) payload
//
// The header records the codec name so snapshots written with one codec
// stay readable after the default changes.
var snapMagic = [4]byte{'R', 'G', 'S', '1'}

const snapVersion = uint16(1)

// encodeSnapshot serializes v into a self-describing snapshot blob.
func encodeSnapshot(c codec.Codec, comp Compression, v any) ([]byte, error) {
	payload, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot payload: %w", err)
	}

	payload, err = compress(comp, payload)
	if err != nil {
		return nil, err
	}

	name := c.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("codec name too long: %s", name)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 20+len(name)+len(payload)))
	buf.Write(snapMagic[:])
	_ = binary.Write(buf, binary.LittleEndian, snapVersion)
	buf.WriteByte(byte(comp))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	_ = binary.Write(buf, binary.LittleEndian, hash.CRC32C(payload))
	_ = binary.Write(buf, binary.LittleEndian, uint64(len(payload)))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// decodeSnapshot parses a snapshot blob produced by encodeSnapshot into v.
func decodeSnapshot(data []byte, v any) error {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("failed to read snapshot magic: %w", err)
	}
	if magic != snapMagic {
		return fmt.Errorf("unsupported snapshot format: invalid magic")
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("failed to read snapshot version: %w", err)
	}
	if version != snapVersion {
		return fmt.Errorf("unsupported snapshot version: %d", version)
	}

	var compByte, nameLen byte
	if err := binary.Read(r, binary.LittleEndian, &compByte); err != nil {
		return fmt.Errorf("failed to read snapshot compression: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return fmt.Errorf("failed to read snapshot codec name length: %w", err)
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return fmt.Errorf("failed to read snapshot codec name: %w", err)
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return fmt.Errorf("unknown snapshot codec: %s", name)
	}

	var checksum uint32
	if err := binary.Read(r, binary.LittleEndian, &checksum); err != nil {
		return fmt.Errorf("failed to read snapshot checksum: %w", err)
	}
	var payloadLen uint64
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return fmt.Errorf("failed to read snapshot payload length: %w", err)
	}
	if payloadLen != uint64(r.Len()) {
		return fmt.Errorf("snapshot payload length mismatch: header %d, actual %d", payloadLen, r.Len())
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("failed to read snapshot payload: %w", err)
	}
	if got := hash.CRC32C(payload); got != checksum {
		return fmt.Errorf("snapshot checksum mismatch: header %08x, actual %08x", checksum, got)
	}

	payload, err := decompress(Compression(compByte), payload)
	if err != nil {
		return err
	}

	if err := c.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return nil
}

func compress(comp Compression, payload []byte) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return payload, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(payload, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", comp)
	}
}

func decompress(comp Compression, payload []byte) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return payload, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", comp)
	}
}
