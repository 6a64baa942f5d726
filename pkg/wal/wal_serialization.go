package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// frameOverhead is the fixed part of a frame: LSN, op, length, checksum, timestamp
const frameOverhead = 8 + 1 + 4 + 4 + 8

// maxEntrySize bounds the length prefix so a corrupt header cannot trigger a huge allocation
const maxEntrySize = 16 << 20

var errEntryTooLarge = errors.New("entry exceeds maximum size")

// writeEntry writes a single frame.
// Format: [LSN:8][OpType:1][DataLen:4][Data:N][Checksum:4][Timestamp:8]
func writeEntry(w *bufio.Writer, entry *Entry, stored []byte) error {
	if err := binary.Write(w, binary.LittleEndian, entry.LSN); err != nil {
		return err
	}
	if err := w.WriteByte(byte(entry.OpType)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(stored))); err != nil {
		return err
	}
	if _, err := w.Write(stored); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, entry.Checksum); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, entry.Timestamp)
}

// readEntry reads one frame. Data holds the bytes as stored on disk.
func readEntry(r *bufio.Reader) (*Entry, error) {
	entry := &Entry{}

	if err := binary.Read(r, binary.LittleEndian, &entry.LSN); err != nil {
		return nil, err
	}

	op, err := r.ReadByte()
	if err != nil {
		return nil, unexpected(err)
	}
	entry.OpType = OpType(op)

	var dataLen uint32
	if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
		return nil, unexpected(err)
	}
	if dataLen > maxEntrySize {
		return nil, fmt.Errorf("%w: %d bytes", errEntryTooLarge, dataLen)
	}

	entry.Data = make([]byte, dataLen)
	if _, err := io.ReadFull(r, entry.Data); err != nil {
		return nil, unexpected(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &entry.Checksum); err != nil {
		return nil, unexpected(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &entry.Timestamp); err != nil {
		return nil, unexpected(err)
	}

	return entry, nil
}

// unexpected turns a clean EOF in the middle of a frame into a torn-write error
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
