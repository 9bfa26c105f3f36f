package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"topfeed/internal/application/usecase/monitor"
)

// Parse 解析一行控制台输入：sub <mint> | unsub | reconnect | status | quit
func Parse(line string) (monitor.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return monitor.Command{}, fmt.Errorf("empty command")
	}
	switch strings.ToLower(fields[0]) {
	case "sub", "subscribe":
		if len(fields) != 2 {
			return monitor.Command{}, fmt.Errorf("usage: sub <mint>")
		}
		return monitor.Command{Op: monitor.OpSubscribe, Mint: fields[1]}, nil
	case "unsub", "unsubscribe":
		return monitor.Command{Op: monitor.OpUnsubscribe}, nil
	case "reconnect", "r":
		return monitor.Command{Op: monitor.OpReconnect}, nil
	case "status", "s":
		return monitor.Command{Op: monitor.OpStatus}, nil
	case "quit", "exit", "q":
		return monitor.Command{Op: monitor.OpQuit}, nil
	default:
		return monitor.Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// ReadCommands 逐行读取 r 并把解析出的命令发送到返回的 channel
// r 读完或 ctx 结束时关闭 channel；无法解析的行只记日志
func ReadCommands(ctx context.Context, r io.Reader) <-chan monitor.Command {
	out := make(chan monitor.Command)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			cmd, err := Parse(line)
			if err != nil {
				log.Warn().Err(err).Msg("console command ignored")
				continue
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			log.Debug().Err(err).Msg("console input closed")
		}
	}()
	return out
}
