package notifications

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Console prints events as single lines, colourised by level.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[Level]*color.Color
}

// NewConsole returns a console sink writing to out.
func NewConsole(out io.Writer, colorize bool) *Console {
	styles := map[Level]*color.Color{
		LevelInfo:    color.New(color.FgCyan),
		LevelSuccess: color.New(color.FgGreen),
		LevelWarning: color.New(color.FgYellow),
		LevelError:   color.New(color.FgRed, color.Bold),
	}
	for _, style := range styles {
		if colorize {
			style.EnableColor()
		} else {
			style.DisableColor()
		}
	}
	return &Console{out: out, styles: styles}
}

// Notify writes event to the console.
func (c *Console) Notify(_ context.Context, event Event) error {
	style, ok := c.styles[event.Level]
	if !ok {
		style = c.styles[LevelInfo]
	}
	label := style.Sprintf("[%s]", levelLabel(event.Level))

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "%s %s\n", label, event.String())
	return err
}

func levelLabel(level Level) string {
	switch level {
	case LevelSuccess:
		return "ok"
	case LevelWarning:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}
