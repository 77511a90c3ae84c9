package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// Console prints user-facing progress lines.
// In silent mode only Announce and Errorf reach the output.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	silent bool
	color  bool
}

// NewConsole creates a console writing to stdout
func NewConsole(silent, color bool) *Console {
	return &Console{out: os.Stdout, silent: silent, color: color}
}

// NewBufferedConsole writes to w without colors; used by tests
func NewBufferedConsole(w io.Writer, silent bool) *Console {
	return &Console{out: w, silent: silent}
}

func (c *Console) paint(fn func(string) string, s string) string {
	if !c.color {
		return s
	}
	return fn(s)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// Printf prints a status message unless silent
func (c *Console) Printf(format string, args ...interface{}) {
	if c.silent {
		return
	}
	c.println(fmt.Sprintf(format, args...))
}

// Info prints a highlighted label and value unless silent
func (c *Console) Info(label, value string) {
	if c.silent {
		return
	}
	c.println(fmt.Sprintf("%s: %s", c.paint(Cyan, label), c.paint(Yellow, value)))
}

// Warnf prints a warning unless silent
func (c *Console) Warnf(format string, args ...interface{}) {
	if c.silent {
		return
	}
	c.println(c.paint(Yellow, fmt.Sprintf(format, args...)))
}

// Announce prints a phase message regardless of silent mode
func (c *Console) Announce(format string, args ...interface{}) {
	c.println(c.paint(Magenta, fmt.Sprintf(format, args...)))
}

// Errorf prints an error regardless of silent mode
func (c *Console) Errorf(format string, args ...interface{}) {
	c.println(c.paint(Red, fmt.Sprintf(format, args...)))
}

// Success prints a success line unless silent
func (c *Console) Success(format string, args ...interface{}) {
	if c.silent {
		return
	}
	c.println(c.paint(Green, fmt.Sprintf(format, args...)))
}

// List prints a numbered list starting at 1, unless silent
func (c *Console) List(title string, items []string) {
	if c.silent {
		return
	}
	c.println(title)
	for i, item := range items {
		c.println(fmt.Sprintf("\t%d) %s", i+1, item))
	}
}
