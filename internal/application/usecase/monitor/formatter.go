package monitor

import (
	"fmt"
	"strings"

	"topfeed/internal/application/port"
	"topfeed/internal/domain/model"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	// Top 快照行每个 feed 展示的条目数
	Top int
}

func NewFormatter(top int) *Formatter {
	if top < 0 {
		top = 0
	}
	return &Formatter{Top: top}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func (f *Formatter) Render(snaps []port.FeedSnapshot, mode RenderMode) string {
	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(colorize("[TOPFEED] ", ansiDim))

	for i, snap := range snaps {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}
		sb.WriteString(snap.Kind)
		sb.WriteString(" ")
		sb.WriteString(statusCell(snap))

		target := "--"
		if snap.Target != "" {
			target = model.ShortAddress(snap.Target)
		}
		sb.WriteString(" ")
		sb.WriteString(target)
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprintf("n=%d", len(snap.Items)))

		if snap.Error != "" {
			sb.WriteString(" ")
			sb.WriteString(colorize(snap.Error, ansiRed))
		}

		if mode == RenderSnapshot {
			for j, it := range snap.Items {
				if j >= f.Top {
					break
				}
				sb.WriteString(colorize(" | ", ansiDim))
				sb.WriteString(it.Summary())
			}
		}
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

func statusCell(snap port.FeedSnapshot) string {
	switch {
	case snap.IsConnected:
		return colorize("● "+snap.Status, ansiGreen)
	case snap.Error != "":
		return colorize("○ "+snap.Status, ansiRed)
	default:
		return colorize("○ "+snap.Status, ansiYellow)
	}
}
