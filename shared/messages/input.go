package messages

import "github.com/automoto/fpsync/shared/netconfig"

// Command is one timestamped sample of player intent, issued by the owning
// client at most once per tick.
type Command struct {
	Timestamp       float64        // Issuer clock, strictly increasing; the correlation key for snapshots
	Axes            netconfig.Axes // Forward, left, back, right
	Moved           bool           // Issuer saw movement this tick
	Walk            bool
	Crouch          bool
	Jump            bool // Already edge-detected by the issuer
	RotationChanged bool
	Yaw             float32 // Degrees, absolute
	Pitch           float32 // Degrees, absolute
}

// IdleCommand is the surrogate the server simulates when a character has
// no queued input. It keeps the current crouch state and forces walk.
func IdleCommand(timestamp float64, crouching bool) Command {
	return Command{
		Timestamp: timestamp,
		Walk:      true,
		Crouch:    crouching,
	}
}

// CommandBatch is every command issued during one send interval.
type CommandBatch struct {
	Commands []Command
}

func (CommandBatch) Kind() Kind { return KindCommandBatch }

// Stamp is the timestamp of the last command, 0 for an empty batch.
func (b CommandBatch) Stamp() float64 {
	if len(b.Commands) == 0 {
		return 0
	}
	return b.Commands[len(b.Commands)-1].Timestamp
}
