package stream

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/ColonelBlimp/gocw/internal/cw"
)

func newTestEngine(t *testing.T) *cw.Engine {
	t.Helper()
	cfg := cw.DefaultEngineConfig()
	cfg.AudioSystem = cw.AudioNone
	cfg.QueueCapacity = 500
	e, err := cw.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(func() { e.Stop() })
	return e
}

type recordingReporter struct {
	acks []string
	naks []string
}

func (r *recordingReporter) Ack(line string)           { r.acks = append(r.acks, line) }
func (r *recordingReporter) Nak(line string, err error) { r.naks = append(r.naks, line) }

func TestStripComments(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello {ignore me} world", "hello  world"},
		{"no comments here", "no comments here"},
		{"{fully bracketed}", ""},
		{"unbalanced } brace", "unbalanced  brace"},
		{"nested {outer {inner} still out} end", "nested  end"},
	}
	for _, tt := range tests {
		if got := stripComments(tt.in); got != tt.want {
			t.Errorf("stripComments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDriver_Run_PlainTextAcked(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}
	var echo bytes.Buffer

	d := NewDriver(e, Options{DoComments: true, DoCombinations: true, DoEcho: true}, rep, &echo, nil)
	if err := d.Run(strings.NewReader("E\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(rep.acks) != 1 || len(rep.naks) != 0 {
		t.Errorf("acks=%v naks=%v, want one ack and no naks", rep.acks, rep.naks)
	}
	if echo.String() != "E" {
		t.Errorf("echo = %q, want %q", echo.String(), "E")
	}
}

func TestDriver_Run_CommentStrippedBeforeSend(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}
	var echo bytes.Buffer

	d := NewDriver(e, Options{DoComments: true, DoCombinations: true, DoEcho: true}, rep, &echo, nil)
	if err := d.Run(strings.NewReader("E{this is a comment}\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if echo.String() != "E" {
		t.Errorf("echo = %q, want %q (comment stripped)", echo.String(), "E")
	}
}

func TestDriver_Run_UnknownCharacterNaks(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}

	d := NewDriver(e, Options{DoComments: true, DoCombinations: true}, rep, nil, nil)
	if err := d.Run(strings.NewReader("~\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.naks) != 1 {
		t.Fatalf("naks = %v, want exactly one", rep.naks)
	}
}

func TestDriver_Run_CombinationSentAsOneGroup(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}
	var echo bytes.Buffer

	d := NewDriver(e, Options{DoCombinations: true, DoEcho: true}, rep, &echo, nil)
	if err := d.Run(strings.NewReader("[AR]\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.naks) != 0 {
		t.Errorf("naks = %v, want none", rep.naks)
	}
	if echo.String() != "AR" {
		t.Errorf("echo = %q, want %q", echo.String(), "AR")
	}
}

func TestWriterReporter_NakAlwaysWrites(t *testing.T) {
	var buf bytes.Buffer
	r := &WriterReporter{W: &buf, Verbose: false}
	r.Nak("bad line", errors.New("boom"))

	if !strings.Contains(buf.String(), "bad line") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("Nak() output = %q, want it to mention the line and error", buf.String())
	}
}

func TestWriterReporter_AckSilentUnlessVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := &WriterReporter{W: &buf, Verbose: false}
	r.Ack("good line")
	if buf.Len() != 0 {
		t.Errorf("Ack() with Verbose=false wrote %q, want nothing", buf.String())
	}

	r.Verbose = true
	r.Ack("good line")
	if !strings.Contains(buf.String(), "good line") {
		t.Errorf("Ack() with Verbose=true = %q, want it to mention the line", buf.String())
	}
}

// --- %<letter><digits>; / %?<letter> / %<<letter> command grammar ---

func TestParseCommand_Set(t *testing.T) {
	kind, letter, digits, err := parseCommand("S20;")
	if err != nil {
		t.Fatalf("parseCommand error: %v", err)
	}
	if kind != commandSet || letter != 'S' || digits != "20" {
		t.Errorf("parseCommand(%q) = (%v, %q, %q), want (commandSet, 'S', \"20\")", "S20;", kind, string(letter), digits)
	}
}

func TestParseCommand_Query(t *testing.T) {
	kind, letter, _, err := parseCommand("?F")
	if err != nil {
		t.Fatalf("parseCommand error: %v", err)
	}
	if kind != commandQuery || letter != 'F' {
		t.Errorf("parseCommand(%q) = (%v, %q), want (commandQuery, 'F')", "?F", kind, string(letter))
	}
}

func TestParseCommand_SpokenQuery(t *testing.T) {
	kind, letter, _, err := parseCommand("<V")
	if err != nil {
		t.Fatalf("parseCommand error: %v", err)
	}
	if kind != commandSpokenQuery || letter != 'V' {
		t.Errorf("parseCommand(%q) = (%v, %q), want (commandSpokenQuery, 'V')", "<V", kind, string(letter))
	}
}

func TestParseCommand_MalformedRejected(t *testing.T) {
	tests := []string{"?", "<", "?SS", "<VV", ""}
	for _, body := range tests {
		if _, _, _, err := parseCommand(body); err == nil {
			t.Errorf("parseCommand(%q) = nil error, want malformed-command error", body)
		}
	}
}

func TestDriver_RunCommand_SetSpeed(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}
	var cmdOut bytes.Buffer

	d := NewDriver(e, Options{DoCommands: true}, rep, nil, &cmdOut)
	if err := d.Run(strings.NewReader("%S25;\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.naks) != 0 {
		t.Fatalf("naks = %v, want none", rep.naks)
	}
	if got := e.Timing().Snapshot().Unit; got != int64(1_200_000/25) {
		t.Errorf("Unit after %%S25; = %d, want %d", got, 1_200_000/25)
	}

	want := string([]byte{ackByte, 'S'}) + "25"
	if cmdOut.String() != want {
		t.Errorf("cmdOut = %q, want %q", cmdOut.String(), want)
	}
}

func TestDriver_RunCommand_SetRejectsOutOfRange(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}
	var cmdOut bytes.Buffer

	d := NewDriver(e, Options{DoCommands: true}, rep, nil, &cmdOut)
	if err := d.Run(strings.NewReader("%S999;\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.naks) != 1 {
		t.Fatalf("naks = %v, want exactly one", rep.naks)
	}

	want := string([]byte{nakByte, 'S'}) + "999"
	if cmdOut.String() != want {
		t.Errorf("cmdOut = %q, want %q", cmdOut.String(), want)
	}
}

func TestDriver_RunCommand_Query(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}
	var cmdOut bytes.Buffer

	d := NewDriver(e, Options{DoCommands: true}, rep, nil, &cmdOut)
	if err := d.Run(strings.NewReader("%?F\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.naks) != 0 {
		t.Fatalf("naks = %v, want none", rep.naks)
	}

	want := string([]byte{ackByte, 'F'}) + strconv.Itoa(e.Snapshot().Frequency)
	if cmdOut.String() != want {
		t.Errorf("cmdOut = %q, want %q", cmdOut.String(), want)
	}
}

func TestDriver_RunCommand_SpokenQuerySendsValueAsCW(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}
	var cmdOut bytes.Buffer

	d := NewDriver(e, Options{DoCommands: true}, rep, nil, &cmdOut)
	if err := d.Run(strings.NewReader("%<V\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.naks) != 0 {
		t.Fatalf("naks = %v, want none", rep.naks)
	}
	if err := e.Queue().WaitForQueue(); err != nil {
		t.Fatalf("WaitForQueue error: %v", err)
	}
}

func TestDriver_RunCommand_BooleanToggle(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}

	d := NewDriver(e, Options{DoCommands: true}, rep, nil, nil)
	if err := d.Run(strings.NewReader("%E1;\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !d.opts.DoEcho {
		t.Error("DoEcho should be true after %E1;")
	}
}

func TestDriver_RunCommand_UnknownLetterNaks(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}

	d := NewDriver(e, Options{DoCommands: true}, rep, nil, nil)
	if err := d.Run(strings.NewReader("%Z1;\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.naks) != 1 {
		t.Errorf("naks = %v, want exactly one", rep.naks)
	}
}

func TestDriver_RunCommand_Quit(t *testing.T) {
	e := newTestEngine(t)
	rep := &recordingReporter{}

	d := NewDriver(e, Options{DoCommands: true}, rep, nil, nil)
	if err := d.Run(strings.NewReader("%Q\nE\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rep.acks) != 1 {
		t.Errorf("acks = %v, want exactly one (the %%Q line, not the trailing E)", rep.acks)
	}
}
