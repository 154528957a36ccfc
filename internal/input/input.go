// Package input turns keystrokes into dashboard commands.
//
// While the engine runs, the terminal is switched to raw mode so
// single keys arrive without a newline. The reader goroutine maps keys
// to commands and forwards them on a channel; the channel closes when
// the input source ends, which the engine treats as quit.
package input

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Command is a user intent produced by a key press.
type Command string

const (
	CmdRefresh Command = "refresh"
	CmdImport  Command = "import"
	CmdExport  Command = "export"
	CmdQuit    Command = "quit"
)

// Translate maps one key byte to its command. The second return is
// false for keys without a binding.
func Translate(b byte) (Command, bool) {
	switch b {
	case '1', 'r', 'R':
		return CmdRefresh, true
	case '2', 'i', 'I':
		return CmdImport, true
	case '3', 'e', 'E':
		return CmdExport, true
	case 'q', 'Q', 0x03: // ctrl-C arrives as a byte in raw mode
		return CmdQuit, true
	default:
		return "", false
	}
}

// Keyboard reads key presses from one source. Raw mode is engaged
// only when the source is a real terminal, so tests can feed any
// io.Reader.
type Keyboard struct {
	in       io.Reader
	log      *logrus.Logger
	restore  func() error
	commands chan Command
}

// New builds a keyboard source reading from in. A nil log discards.
func New(in io.Reader, log *logrus.Logger) *Keyboard {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Keyboard{
		in:       in,
		log:      log,
		commands: make(chan Command, 16),
	}
}

// Start switches the terminal to raw mode when possible and begins
// reading. The returned channel closes when the source ends.
func (k *Keyboard) Start() (<-chan Command, error) {
	if f, ok := k.in.(*os.File); ok {
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return nil, fmt.Errorf("enter raw mode: %w", err)
			}
			k.restore = func() error { return term.Restore(fd, oldState) }
		}
	}
	go k.readLoop()
	return k.commands, nil
}

// Close restores the terminal state. The reader goroutine ends with
// its source; a blocked stdin read is released by process exit.
func (k *Keyboard) Close() error {
	if k.restore == nil {
		return nil
	}
	restore := k.restore
	k.restore = nil
	return restore()
}

func (k *Keyboard) readLoop() {
	defer close(k.commands)

	buf := make([]byte, 1)
	for {
		n, err := k.in.Read(buf)
		if err != nil {
			if err != io.EOF {
				k.log.WithError(err).Debug("keyboard source closed")
			}
			return
		}
		if n == 0 {
			continue
		}

		cmd, ok := Translate(buf[0])
		if !ok {
			continue
		}
		k.log.WithField("command", string(cmd)).Debug("key press")

		select {
		case k.commands <- cmd:
		default:
			// Slow consumer; drop rather than stall the read loop.
		}
		if cmd == CmdQuit {
			return
		}
	}
}
