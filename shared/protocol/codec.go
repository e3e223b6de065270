// Package protocol is the fixed-width little-endian wire format shared by
// client and server.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/netconfig"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// CommandSize is the encoded size of one command:
	// crouch, jump, moveFlag, pitch, rotateFlag, timestamp, walk, wasd[4], yaw.
	CommandSize = 1 + 1 + 1 + 4 + 1 + 8 + 1 + int(netconfig.IntentCount) + 4
	// SnapshotSize is timestamp, position and moveVector.
	SnapshotSize = 8 + 3*4 + 3*4
	// MaxBatchCommands caps the count prefix so a corrupt frame cannot force
	// a huge allocation.
	MaxBatchCommands = 4096
)

var (
	ErrShortBuffer   = errors.New("protocol: short buffer")
	ErrInvalidBool   = errors.New("protocol: invalid bool byte")
	ErrBatchTooLarge = errors.New("protocol: batch too large")
	ErrUnknownKind   = errors.New("protocol: unknown message kind")
	ErrTrailingBytes = errors.New("protocol: trailing bytes")
	ErrStringTooLong = errors.New("protocol: string too long")
)

// AppendCommand appends the fixed-width encoding of c.
func AppendCommand(b []byte, c messages.Command) []byte {
	b = appendBool(b, c.Crouch)
	b = appendBool(b, c.Jump)
	b = appendBool(b, c.Moved)
	b = appendF32(b, c.Pitch)
	b = appendBool(b, c.RotationChanged)
	b = appendF64(b, c.Timestamp)
	b = appendBool(b, c.Walk)
	for _, held := range c.Axes {
		b = appendBool(b, held)
	}
	return appendF32(b, c.Yaw)
}

// AppendBatch appends the u32 count followed by every command.
func AppendBatch(b []byte, batch messages.CommandBatch) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(batch.Commands)))
	for _, c := range batch.Commands {
		b = AppendCommand(b, c)
	}
	return b
}

// EncodeBatch returns the standalone encoding of batch.
func EncodeBatch(batch messages.CommandBatch) []byte {
	return AppendBatch(make([]byte, 0, 4+len(batch.Commands)*CommandSize), batch)
}

// DecodeBatch decodes a batch that occupies all of data.
func DecodeBatch(data []byte) (messages.CommandBatch, error) {
	r := reader{buf: data}
	batch := r.batch()
	if err := r.finish(); err != nil {
		return messages.CommandBatch{}, fmt.Errorf("decode command batch: %w", err)
	}
	return batch, nil
}

// AppendSnapshot appends the 32-byte snapshot payload. The character id is
// not part of the payload; frames carry it in their header.
func AppendSnapshot(b []byte, s messages.Snapshot) []byte {
	b = appendF64(b, s.Timestamp)
	b = appendVec3(b, s.Position)
	return appendVec3(b, s.MoveVector)
}

// EncodeSnapshot returns the standalone snapshot payload.
func EncodeSnapshot(s messages.Snapshot) []byte {
	return AppendSnapshot(make([]byte, 0, SnapshotSize), s)
}

// DecodeSnapshot decodes a payload that occupies all of data.
func DecodeSnapshot(data []byte) (messages.Snapshot, error) {
	r := reader{buf: data}
	s := r.snapshot()
	if err := r.finish(); err != nil {
		return messages.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func appendF32(b []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
}

func appendF64(b []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
}

func appendVec3(b []byte, v mgl32.Vec3) []byte {
	b = appendF32(b, v[0])
	b = appendF32(b, v[1])
	return appendF32(b, v[2])
}

func appendString(b []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint16 {
		return nil, ErrStringTooLong
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(len(s)))
	return append(b, s...), nil
}

// reader consumes a buffer and keeps the first error it hits; every read
// after an error returns a zero value.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.err = ErrShortBuffer
		return nil
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p
}

func (r *reader) u8() byte {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (r *reader) flag() bool {
	switch r.u8() {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = ErrInvalidBool
		}
		return false
	}
}

func (r *reader) u16() uint16 {
	p := r.take(2)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(p)
}

func (r *reader) u32() uint32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (r *reader) u64() uint64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) f64() float64 {
	return math.Float64frombits(r.u64())
}

func (r *reader) vec3() mgl32.Vec3 {
	return mgl32.Vec3{r.f32(), r.f32(), r.f32()}
}

func (r *reader) str() string {
	n := int(r.u16())
	return string(r.take(n))
}

func (r *reader) command() messages.Command {
	var c messages.Command
	c.Crouch = r.flag()
	c.Jump = r.flag()
	c.Moved = r.flag()
	c.Pitch = r.f32()
	c.RotationChanged = r.flag()
	c.Timestamp = r.f64()
	c.Walk = r.flag()
	for i := range c.Axes {
		c.Axes[i] = r.flag()
	}
	c.Yaw = r.f32()
	return c
}

func (r *reader) batch() messages.CommandBatch {
	count := r.u32()
	if r.err != nil {
		return messages.CommandBatch{}
	}
	if count > MaxBatchCommands {
		r.err = ErrBatchTooLarge
		return messages.CommandBatch{}
	}
	if uint64(len(r.buf)-r.off) < uint64(count)*uint64(CommandSize) {
		r.err = ErrShortBuffer
		return messages.CommandBatch{}
	}
	batch := messages.CommandBatch{Commands: make([]messages.Command, count)}
	for i := range batch.Commands {
		batch.Commands[i] = r.command()
	}
	return batch
}

func (r *reader) snapshot() messages.Snapshot {
	return messages.Snapshot{
		Timestamp:  r.f64(),
		Position:   r.vec3(),
		MoveVector: r.vec3(),
	}
}

func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return ErrTrailingBytes
	}
	return nil
}
