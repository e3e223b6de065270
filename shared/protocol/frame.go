package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/automoto/fpsync/shared/messages"
)

// Marshal encodes msg as a frame: one kind byte followed by the body.
func Marshal(msg messages.Message) ([]byte, error) {
	b := []byte{byte(msg.Kind())}
	var err error
	switch m := msg.(type) {
	case messages.CommandBatch:
		b = AppendBatch(b, m)
	case *messages.CommandBatch:
		b = AppendBatch(b, *m)
	case messages.Snapshot:
		b = binary.LittleEndian.AppendUint32(b, m.Character)
		b = AppendSnapshot(b, m)
	case messages.JoinRequest:
		if b, err = appendString(b, m.Version); err == nil {
			b, err = appendString(b, m.PlayerName)
		}
	case messages.JoinAccepted:
		b = binary.LittleEndian.AppendUint32(b, m.NetworkID)
		if b, err = appendString(b, m.PlayerUID); err == nil {
			if b, err = appendString(b, m.ServerName); err == nil {
				b, err = appendString(b, m.Level)
			}
		}
		b = binary.LittleEndian.AppendUint32(b, m.TickRate)
		b = binary.LittleEndian.AppendUint32(b, m.SendInterval)
		b = appendVec3(b, m.Spawn)
		b = appendF32(b, m.SpawnYaw)
	case messages.JoinRejected:
		b, err = appendString(b, m.Reason)
	case messages.CharacterLeft:
		b = binary.LittleEndian.AppendUint32(b, m.NetworkID)
	case messages.DivergenceReport:
		b = binary.LittleEndian.AppendUint32(b, m.Character)
		b = appendF64(b, m.Timestamp)
		b = appendF32(b, m.Drift)
		b = appendF32(b, m.Corrected)
		b = binary.LittleEndian.AppendUint32(b, m.Replayed)
		b = binary.LittleEndian.AppendUint64(b, m.Digest)
	default:
		return nil, fmt.Errorf("marshal %T: %w", msg, ErrUnknownKind)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Kind(), err)
	}
	return b, nil
}

// Unmarshal decodes a frame produced by Marshal.
func Unmarshal(data []byte) (messages.Message, error) {
	if len(data) == 0 {
		return nil, ErrShortBuffer
	}
	kind := messages.Kind(data[0])
	r := reader{buf: data, off: 1}

	var msg messages.Message
	switch kind {
	case messages.KindCommandBatch:
		msg = r.batch()
	case messages.KindSnapshot:
		id := r.u32()
		s := r.snapshot()
		s.Character = id
		msg = s
	case messages.KindJoinRequest:
		msg = messages.JoinRequest{Version: r.str(), PlayerName: r.str()}
	case messages.KindJoinAccepted:
		msg = messages.JoinAccepted{
			NetworkID:    r.u32(),
			PlayerUID:    r.str(),
			ServerName:   r.str(),
			Level:        r.str(),
			TickRate:     r.u32(),
			SendInterval: r.u32(),
			Spawn:        r.vec3(),
			SpawnYaw:     r.f32(),
		}
	case messages.KindJoinRejected:
		msg = messages.JoinRejected{Reason: r.str()}
	case messages.KindCharacterLeft:
		msg = messages.CharacterLeft{NetworkID: r.u32()}
	case messages.KindDivergenceReport:
		msg = messages.DivergenceReport{
			Character: r.u32(),
			Timestamp: r.f64(),
			Drift:     r.f32(),
			Corrected: r.f32(),
			Replayed:  r.u32(),
			Digest:    r.u64(),
		}
	default:
		return nil, fmt.Errorf("unmarshal kind %d: %w", kind, ErrUnknownKind)
	}
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return msg, nil
}
