package messages

// Kind tags every message on the wire.
type Kind uint8

const (
	KindCommandBatch Kind = iota + 1
	KindSnapshot
	KindJoinRequest
	KindJoinAccepted
	KindJoinRejected
	KindCharacterLeft
	KindDivergenceReport
)

func (k Kind) String() string {
	switch k {
	case KindCommandBatch:
		return "command_batch"
	case KindSnapshot:
		return "snapshot"
	case KindJoinRequest:
		return "join_request"
	case KindJoinAccepted:
		return "join_accepted"
	case KindJoinRejected:
		return "join_rejected"
	case KindCharacterLeft:
		return "character_left"
	case KindDivergenceReport:
		return "divergence_report"
	}
	return "unknown"
}

// Message is implemented by every typed message exchanged between roles.
type Message interface {
	Kind() Kind
}

// Frame carries one encoded message through necs, which routes on the Go
// type. Data is the protocol encoding, kind byte first.
type Frame struct {
	Data []byte
}
