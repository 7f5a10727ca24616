package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// health grades one station subsystem on the status screen.
type health int

const (
	healthOK health = iota
	healthNotice
	healthDegraded
	healthDown
)

func (h health) tag() string {
	switch h {
	case healthOK:
		return "OK"
	case healthDegraded:
		return "WARN"
	case healthDown:
		return "DOWN"
	default:
		return "INFO"
	}
}

func (h health) colors() text.Colors {
	switch h {
	case healthOK:
		return text.Colors{text.FgGreen}
	case healthDegraded:
		return text.Colors{text.FgYellow}
	case healthDown:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return text.Colors{text.FgCyan}
	}
}

const statusLabelWidth = 18

// statusPrinter accumulates the status screen line by line.
type statusPrinter struct {
	lines    []string
	colorize bool
}

func (p *statusPrinter) section(title string) {
	if len(p.lines) > 0 {
		p.lines = append(p.lines, "")
	}
	title = strings.TrimSpace(title)
	rule := strings.Repeat("-", len(title))
	if p.colorize {
		title = text.Colors{text.Bold}.Sprint(title)
	}
	p.lines = append(p.lines, title, rule)
}

func (p *statusPrinter) check(label string, h health, detail string) {
	tag := fmt.Sprintf("%-4s", h.tag())
	if p.colorize {
		tag = h.colors().Sprint(tag)
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label, tag)
	if detail != "" {
		line += "  " + detail
	}
	p.lines = append(p.lines, line)
}

func (p *statusPrinter) value(label, value string) {
	p.lines = append(p.lines, fmt.Sprintf("  %-*s %s", statusLabelWidth, label, value))
}

func (p *statusPrinter) note(line string) {
	p.lines = append(p.lines, "", line)
}

func (p *statusPrinter) String() string {
	return strings.Join(p.lines, "\n")
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
