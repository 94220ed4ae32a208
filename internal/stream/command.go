package stream

import (
	"fmt"
	"strconv"
	"strings"
)

// ASCII control characters used to frame parameter-command responses (spec
// §6: "Successful parameter updates are reported on stderr as
// <ACK><letter><value>; failures as <NAK><letter>[<offending>]").
const (
	ackByte byte = 0x06
	nakByte byte = 0x15
)

// errQuit is returned by runCommand for the %Q command. It is not a
// failure: Run treats it as a clean request to stop reading further lines.
var errQuit = fmt.Errorf("quit requested")

// commandKind distinguishes the three forms a parameter command may take
// (spec §6): a value assignment, a plain query, and a query whose answer
// is keyed back as CW rather than just reported.
type commandKind int

const (
	commandSet commandKind = iota
	commandQuery
	commandSpokenQuery
)

// parseCommand splits a %-command body (line with the leading "%" already
// stripped) into its letter, kind, and digit payload, per the three
// grammars spec §6 defines:
//
//	<letter><digits>;   commandSet
//	?<letter>           commandQuery
//	<<letter>           commandSpokenQuery
func parseCommand(body string) (kind commandKind, letter byte, digits string, err error) {
	switch {
	case strings.HasPrefix(body, "?"):
		if len(body) != 2 {
			return 0, 0, "", fmt.Errorf("malformed query %q", body)
		}
		return commandQuery, body[1], "", nil
	case strings.HasPrefix(body, "<"):
		if len(body) != 2 {
			return 0, 0, "", fmt.Errorf("malformed spoken query %q", body)
		}
		return commandSpokenQuery, body[1], "", nil
	case len(body) >= 1 && strings.HasSuffix(body, ";"):
		return commandSet, body[0], body[1 : len(body)-1], nil
	case len(body) == 1:
		// %Q needs no digits or terminator.
		return commandSet, body[0], "", nil
	default:
		return 0, 0, "", fmt.Errorf("malformed command %q", body)
	}
}

// commandParam describes one of the eleven letters spec §6 assigns to the
// parameter-command table: how to read its current value (for queries) and
// how to apply a new one (for sets).
type commandParam struct {
	get func(d *Driver) string
	set func(d *Driver, digits string) error
}

func boolDigits(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

func parseBoolDigits(digits string) (bool, error) {
	switch digits {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("want 0 or 1, got %q", digits)
	}
}

func parseIntDigits(digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("want an integer, got %q", digits)
	}
	return n, nil
}

var commandParams = map[byte]commandParam{
	'F': {
		get: func(d *Driver) string { return strconv.Itoa(d.engine.Snapshot().Frequency) },
		set: func(d *Driver, digits string) error {
			hz, err := parseIntDigits(digits)
			if err != nil {
				return err
			}
			return d.engine.Timing().SetFrequency(hz)
		},
	},
	'V': {
		get: func(d *Driver) string { return strconv.Itoa(d.engine.Snapshot().Volume) },
		set: func(d *Driver, digits string) error {
			pct, err := parseIntDigits(digits)
			if err != nil {
				return err
			}
			return d.engine.Timing().SetVolume(pct)
		},
	},
	'S': {
		get: func(d *Driver) string { return strconv.Itoa(d.engine.Timing().SendSpeed()) },
		set: func(d *Driver, digits string) error {
			wpm, err := parseIntDigits(digits)
			if err != nil {
				return err
			}
			return d.engine.Timing().SetSendSpeed(wpm)
		},
	},
	'G': {
		get: func(d *Driver) string { return strconv.Itoa(d.engine.Timing().Gap()) },
		set: func(d *Driver, digits string) error {
			dots, err := parseIntDigits(digits)
			if err != nil {
				return err
			}
			return d.engine.Timing().SetGap(dots)
		},
	},
	'K': {
		get: func(d *Driver) string { return strconv.Itoa(d.engine.Timing().Weighting()) },
		set: func(d *Driver, digits string) error {
			pct, err := parseIntDigits(digits)
			if err != nil {
				return err
			}
			return d.engine.Timing().SetWeighting(pct)
		},
	},
	'E': {
		get: func(d *Driver) string { return boolDigits(d.opts.DoEcho) },
		set: func(d *Driver, digits string) error {
			on, err := parseBoolDigits(digits)
			if err != nil {
				return err
			}
			d.opts.DoEcho = on
			return nil
		},
	},
	'M': {
		get: func(d *Driver) string { return boolDigits(d.opts.DoErrors) },
		set: func(d *Driver, digits string) error {
			on, err := parseBoolDigits(digits)
			if err != nil {
				return err
			}
			d.opts.DoErrors = on
			return nil
		},
	},
	'C': {
		get: func(d *Driver) string { return boolDigits(d.opts.DoCommands) },
		set: func(d *Driver, digits string) error {
			on, err := parseBoolDigits(digits)
			if err != nil {
				return err
			}
			d.opts.DoCommands = on
			return nil
		},
	},
	'O': {
		get: func(d *Driver) string { return boolDigits(d.opts.DoCombinations) },
		set: func(d *Driver, digits string) error {
			on, err := parseBoolDigits(digits)
			if err != nil {
				return err
			}
			d.opts.DoCombinations = on
			return nil
		},
	},
	'P': {
		get: func(d *Driver) string { return boolDigits(d.opts.DoComments) },
		set: func(d *Driver, digits string) error {
			on, err := parseBoolDigits(digits)
			if err != nil {
				return err
			}
			d.opts.DoComments = on
			return nil
		},
	},
}

// runCommand interprets a %-prefixed in-band command line against the
// literal grammar spec §6 defines: "%<letter><digits>;" sets a parameter,
// "%?<letter>" queries it, and "%<<letter>" queries it with the answer
// keyed back as CW. Every outcome is reported in the spec's ACK/NAK byte
// framing via d.cmdOut, in addition to the line-level Ack/Nak the caller
// applies to the raw input line.
func (d *Driver) runCommand(line string) error {
	body := strings.TrimPrefix(line, "%")

	kind, letter, digits, err := parseCommand(body)
	if err != nil {
		d.reportCommandNak(0, body)
		return err
	}

	if letter == 'Q' {
		d.reportCommandAck('Q', "")
		return errQuit
	}

	param, ok := commandParams[letter]
	if !ok {
		d.reportCommandNak(letter, digits)
		return fmt.Errorf("unknown command letter %q", letter)
	}

	switch kind {
	case commandSet:
		if err := param.set(d, digits); err != nil {
			d.reportCommandNak(letter, digits)
			return fmt.Errorf("%%%c command: %w", letter, err)
		}
		d.reportCommandAck(letter, param.get(d))
		return nil
	case commandQuery:
		d.reportCommandAck(letter, param.get(d))
		return nil
	case commandSpokenQuery:
		value := param.get(d)
		d.reportCommandAck(letter, value)
		return d.engine.Sender().SendString(value)
	default:
		return fmt.Errorf("unreachable command kind %d", kind)
	}
}

func (d *Driver) reportCommandAck(letter byte, value string) {
	if d.cmdOut == nil {
		return
	}
	fmt.Fprintf(d.cmdOut, "%c%c%s", ackByte, letter, value)
}

func (d *Driver) reportCommandNak(letter byte, offending string) {
	if d.cmdOut == nil {
		return
	}
	fmt.Fprintf(d.cmdOut, "%c%c%s", nakByte, letter, offending)
}
