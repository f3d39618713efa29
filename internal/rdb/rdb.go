// Package rdb implements the binary snapshot format (C9): a self-describing
// whole-keyspace dump with a magic header, AUX/SELECTDB/RESIZEDB/
// EXPIRETIMEMS/EOF opcodes, two-bit length-prefix variants, and a trailing
// CRC-64 checksum. No third-party CRC-64 implementation appears anywhere in
// the retrieval pack, so the trailer is computed with the standard
// library's hash/crc64 (ECMA polynomial).
package rdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc64"
	"io"
	"math"
	"os"

	"github.com/echojfree/mini-redis/internal/keyspace"
	"github.com/echojfree/mini-redis/internal/store"
)

const (
	Magic   = "REDIS"
	Version = "0007"
)

const (
	opAux          = 0xFA
	opResizeDB     = 0xFB
	opExpireTimeMs = 0xFC
	opSelectDB     = 0xFE
	opEOF          = 0xFF
)

var crcTable = crc64.MakeTable(crc64.ECMA)

// SaveFile writes a complete snapshot of dbs to path, via a temp-file-then-
// rename so a crash mid-write never leaves a corrupt file at path.
func SaveFile(path string, dbs []*keyspace.Keyspace) error {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteString(Version)
	writeAux(&buf, "producer", "mini-redis")

	for i, ks := range dbs {
		items := ks.AllItems()
		if len(items) == 0 {
			continue
		}
		buf.WriteByte(opSelectDB)
		writeLength(&buf, uint64(i))

		expiring := 0
		for _, it := range items {
			if it.HasExpire {
				expiring++
			}
		}
		buf.WriteByte(opResizeDB)
		writeLength(&buf, uint64(len(items)))
		writeLength(&buf, uint64(expiring))

		for key, it := range items {
			if it.HasExpire {
				buf.WriteByte(opExpireTimeMs)
				writeUint64(&buf, uint64(it.ExpireAtMs))
			}
			buf.WriteByte(byte(it.Kind))
			writeString(&buf, key)
			if err := writeItemPayload(&buf, it); err != nil {
				return err
			}
		}
	}
	buf.WriteByte(opEOF)

	sum := crc64.Checksum(buf.Bytes(), crcTable)
	writeUint64(&buf, sum)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile populates dbs from the snapshot at path. A missing file is not an
// error: the keyspaces are simply left empty. A checksum mismatch or a
// corrupted interior record aborts the load and returns an error, per
// §4.7's "readers verify the checksum; a mismatch aborts the load".
func LoadFile(path string, dbs []*keyspace.Keyspace) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) < len(Magic)+len(Version)+8 {
		return fmt.Errorf("rdb: truncated file")
	}
	body, trailer := data[:len(data)-8], data[len(data)-8:]
	want := binary.BigEndian.Uint64(trailer)
	got := crc64.Checksum(body, crcTable)
	if want != got {
		return fmt.Errorf("rdb: checksum mismatch")
	}

	r := bytes.NewReader(body)
	header := make([]byte, len(Magic)+len(Version))
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	if string(header[:len(Magic)]) != Magic {
		return fmt.Errorf("rdb: bad magic")
	}

	curDB := 0
	for {
		op, err := r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch op {
		case opEOF:
			return nil
		case opAux:
			if _, err := readString(r); err != nil {
				return err
			}
			if _, err := readString(r); err != nil {
				return err
			}
		case opSelectDB:
			n, err := readLength(r)
			if err != nil {
				return err
			}
			curDB = int(n)
		case opResizeDB:
			if _, err := readLength(r); err != nil {
				return err
			}
			if _, err := readLength(r); err != nil {
				return err
			}
		case opExpireTimeMs:
			expireAt, err := readUint64(r)
			if err != nil {
				return err
			}
			kindByte, err := r.ReadByte()
			if err != nil {
				return err
			}
			key, err := readString(r)
			if err != nil {
				return err
			}
			it, err := readItemPayload(r, store.Kind(kindByte))
			if err != nil {
				return err
			}
			it.HasExpire = true
			it.ExpireAtMs = int64(expireAt)
			if curDB < len(dbs) {
				dbs[curDB].Set(key, it)
			}
		default:
			key, err := readString(r)
			if err != nil {
				return err
			}
			it, err := readItemPayload(r, store.Kind(op))
			if err != nil {
				return err
			}
			if curDB < len(dbs) {
				dbs[curDB].Set(key, it)
			}
		}
	}
}

func writeAux(buf *bytes.Buffer, key, value string) {
	buf.WriteByte(opAux)
	writeString(buf, key)
	writeString(buf, value)
}

// writeLength encodes n using the two-bit prefix scheme: 00 six-bit inline,
// 01 fourteen-bit, 10 a following 32-bit big-endian length.
func writeLength(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 1<<6:
		buf.WriteByte(byte(n))
	case n < 1<<14:
		buf.WriteByte(0x40 | byte(n>>8))
		buf.WriteByte(byte(n))
	default:
		buf.WriteByte(0x80)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		buf.Write(b[:])
	}
}

func readLength(r *bytes.Reader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b >> 6 {
	case 0:
		return uint64(b & 0x3F), nil
	case 1:
		b2, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return uint64(b&0x3F)<<8 | uint64(b2), nil
	case 2:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return uint64(binary.BigEndian.Uint32(buf[:])), nil
	default:
		return 0, fmt.Errorf("rdb: unsupported length prefix (11)")
	}
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeLength(buf, uint64(len(b)))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readLength(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeString(buf *bytes.Buffer, s string) { writeBytes(buf, []byte(s)) }

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func writeUint64(buf *bytes.Buffer, n uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	buf.Write(b[:])
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeItemPayload(buf *bytes.Buffer, it *store.Item) error {
	switch it.Kind {
	case store.KindString:
		writeBytes(buf, it.Str)
	case store.KindList:
		all := it.List.All()
		writeLength(buf, uint64(len(all)))
		for _, m := range all {
			writeString(buf, m)
		}
	case store.KindSet:
		members := it.Set.Members()
		writeLength(buf, uint64(len(members)))
		for _, m := range members {
			writeString(buf, m)
		}
	case store.KindHash:
		m := it.Hash.GetAll()
		writeLength(buf, uint64(len(m)))
		for k, v := range m {
			writeString(buf, k)
			writeString(buf, v)
		}
	case store.KindZSet:
		all := it.ZSet.All()
		writeLength(buf, uint64(len(all)))
		for _, e := range all {
			writeString(buf, e.Member)
			writeUint64(buf, math.Float64bits(e.Score))
		}
	default:
		return fmt.Errorf("rdb: unknown item kind %v", it.Kind)
	}
	return nil
}

func readItemPayload(r *bytes.Reader, kind store.Kind) (*store.Item, error) {
	switch kind {
	case store.KindString:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return store.NewStringItem(b), nil
	case store.KindList:
		n, err := readLength(r)
		if err != nil {
			return nil, err
		}
		it := store.NewListItem()
		for i := uint64(0); i < n; i++ {
			m, err := readString(r)
			if err != nil {
				return nil, err
			}
			it.List.PushBack(m)
		}
		return it, nil
	case store.KindSet:
		n, err := readLength(r)
		if err != nil {
			return nil, err
		}
		it := store.NewSetItem()
		for i := uint64(0); i < n; i++ {
			m, err := readString(r)
			if err != nil {
				return nil, err
			}
			it.Set.Add(m)
		}
		return it, nil
	case store.KindHash:
		n, err := readLength(r)
		if err != nil {
			return nil, err
		}
		it := store.NewHashItem()
		for i := uint64(0); i < n; i++ {
			k, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readString(r)
			if err != nil {
				return nil, err
			}
			it.Hash.Set(k, v)
		}
		return it, nil
	case store.KindZSet:
		n, err := readLength(r)
		if err != nil {
			return nil, err
		}
		it := store.NewZSetItem()
		for i := uint64(0); i < n; i++ {
			m, err := readString(r)
			if err != nil {
				return nil, err
			}
			bits, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			it.ZSet.Add(math.Float64frombits(bits), m)
		}
		return it, nil
	default:
		return nil, fmt.Errorf("rdb: unknown type byte %d", kind)
	}
}
