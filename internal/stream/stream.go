// Package stream implements the line-oriented protocol a CW sender reads
// from its input: plain text to be keyed, {}-bracketed comments stripped
// before sending, []-bracketed combinations sent as a single grouped
// representation, and %-prefixed commands that reconfigure the engine
// in-band (spec §6).
package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ColonelBlimp/gocw/internal/cw"
)

// Reporter is how the Driver surfaces per-line acknowledgement, mirroring
// a teletype sender's ACK/NAK conventions: good lines are silent, bad ones
// are reported on stderr-equivalent w.
type Reporter interface {
	Ack(line string)
	Nak(line string, err error)
}

// WriterReporter writes NAKs (and, if Verbose, ACKs) to an io.Writer.
type WriterReporter struct {
	W       io.Writer
	Verbose bool
}

func (r *WriterReporter) Ack(line string) {
	if r.Verbose {
		fmt.Fprintf(r.W, "%% ok: %s\n", line)
	}
}

func (r *WriterReporter) Nak(line string, err error) {
	fmt.Fprintf(r.W, "%% error: %s: %v\n", line, err)
}

// Options toggles which protocol features the Driver recognises (spec §6:
// do_commands, do_combinations, do_comments, do_errors), mutable in-band
// by the M/C/O/P/E parameter commands.
type Options struct {
	DoCommands     bool
	DoCombinations bool
	DoComments     bool
	DoEcho         bool
	DoErrors       bool
}

// Driver reads lines from r, applies the protocol, and drives engine's
// Sender for every character that survives.
type Driver struct {
	engine *cw.Engine
	opts   Options
	report Reporter
	echo   io.Writer
	cmdOut io.Writer
}

// NewDriver constructs a Driver over engine, reading lines from r. cmdOut
// receives the ACK/NAK byte-framed responses to %-commands (spec §6); it
// may be nil to discard them.
func NewDriver(engine *cw.Engine, opts Options, report Reporter, echo, cmdOut io.Writer) *Driver {
	return &Driver{engine: engine, opts: opts, report: report, echo: echo, cmdOut: cmdOut}
}

// Run processes every line from r until EOF, an unrecoverable read error,
// or a %Q command requests a clean stop.
func (d *Driver) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		err := d.processLine(line)
		if err == errQuit {
			d.report.Ack(line)
			return nil
		}
		if err != nil {
			d.report.Nak(line, err)
			continue
		}
		d.report.Ack(line)
	}
	return scanner.Err()
}

func (d *Driver) processLine(line string) error {
	if d.opts.DoComments {
		line = stripComments(line)
	}

	if d.opts.DoCommands && strings.HasPrefix(strings.TrimSpace(line), "%") {
		return d.runCommand(strings.TrimSpace(line))
	}

	if d.opts.DoCombinations {
		return d.sendWithCombinations(line)
	}
	return d.send(line)
}

// stripComments removes every {...} bracketed span from line.
func stripComments(line string) string {
	var b strings.Builder
	depth := 0
	for _, r := range line {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// sendWithCombinations sends line, treating any [...] bracketed span as one
// combined representation sent without the usual inter-character gap
// (spec §6: "[]-bracketed combinations").
func (d *Driver) sendWithCombinations(line string) error {
	var combo strings.Builder
	inCombo := false
	for _, r := range line {
		switch {
		case r == '[':
			inCombo = true
			combo.Reset()
		case r == ']':
			inCombo = false
			if err := d.sendCombination(combo.String()); err != nil {
				return err
			}
		case inCombo:
			combo.WriteRune(r)
		default:
			if err := d.send(string(r)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) sendCombination(text string) error {
	sender := d.engine.Sender()
	runes := []rune(text)
	for i, c := range runes {
		if err := sender.SendCharacter(c, i != len(runes)-1); err != nil {
			return err
		}
	}
	if d.opts.DoEcho && d.echo != nil {
		fmt.Fprint(d.echo, text)
	}
	return nil
}

func (d *Driver) send(text string) error {
	if err := d.engine.Sender().SendString(text); err != nil {
		return err
	}
	if d.opts.DoEcho && d.echo != nil {
		fmt.Fprint(d.echo, text)
	}
	return nil
}

// runCommand is implemented in command.go, against the literal
// "%<letter><digits>;" / "%?<letter>" / "%<<letter>" grammar (spec §6).
