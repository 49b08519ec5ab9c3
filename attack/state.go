package attack

import "fmt"

type State int

const (
	IDLE State = iota
	SCANNING
	DISCOVERING
	RECORDING
	REPLAYING
	ATTACKING
)

func (s State) String() string {
	switch s {
	case IDLE:
		return "IDLE"
	case SCANNING:
		return "SCANNING"
	case DISCOVERING:
		return "DISCOVERING"
	case RECORDING:
		return "RECORDING"
	case REPLAYING:
		return "REPLAYING"
	case ATTACKING:
		return "ATTACKING"
	}
	return fmt.Sprintf("STATE_%d", int(s))
}

// Command is an external request to the session loop.
type Command int

const (
	CMD_SCAN Command = iota + 1
	CMD_RECORD
	CMD_REPLAY
	CMD_ATTACK
	CMD_ABORT
	CMD_QUIT
)

func (c Command) String() string {
	switch c {
	case CMD_SCAN:
		return "scan"
	case CMD_RECORD:
		return "record"
	case CMD_REPLAY:
		return "replay"
	case CMD_ATTACK:
		return "attack"
	case CMD_ABORT:
		return "abort"
	case CMD_QUIT:
		return "quit"
	}
	return fmt.Sprintf("command %d", int(c))
}
