package monitor

import "topfeed/internal/application/port"

type Feed = port.Feed

// Op 控制台命令类型
type Op int

const (
	OpStatus Op = iota
	OpSubscribe
	OpUnsubscribe
	OpReconnect
	OpQuit
)

func (o Op) String() string {
	switch o {
	case OpSubscribe:
		return "sub"
	case OpUnsubscribe:
		return "unsub"
	case OpReconnect:
		return "reconnect"
	case OpQuit:
		return "quit"
	default:
		return "status"
	}
}

// Command is one operator instruction applied to every feed.
type Command struct {
	Op   Op
	Mint string // only for OpSubscribe
}
