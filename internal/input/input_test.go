package input

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		key  byte
		want Command
		ok   bool
	}{
		{'1', CmdRefresh, true},
		{'r', CmdRefresh, true},
		{'R', CmdRefresh, true},
		{'2', CmdImport, true},
		{'i', CmdImport, true},
		{'3', CmdExport, true},
		{'e', CmdExport, true},
		{'q', CmdQuit, true},
		{'Q', CmdQuit, true},
		{0x03, CmdQuit, true},
		{'x', "", false},
		{' ', "", false},
		{'\n', "", false},
	}
	for _, tt := range tests {
		got, ok := Translate(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Translate(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func collect(t *testing.T, ch <-chan Command) []Command {
	t.Helper()
	var got []Command
	for {
		select {
		case cmd, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, cmd)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, collected %v", got)
		}
	}
}

func TestKeyboard_EmitsCommandsInOrder(t *testing.T) {
	kb := New(strings.NewReader("1x2\n3q"), nil)
	ch, err := kb.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := collect(t, ch)
	want := []Command{CmdRefresh, CmdImport, CmdExport, CmdQuit}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestKeyboard_ClosesChannelOnEOF(t *testing.T) {
	kb := New(strings.NewReader("zz"), nil)
	ch, err := kb.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := collect(t, ch); len(got) != 0 {
		t.Fatalf("unbound keys should emit nothing, got %v", got)
	}
}

func TestKeyboard_StopsAfterQuit(t *testing.T) {
	// Quit ends the read loop even when more input is pending.
	r, w := io.Pipe()
	kb := New(r, nil)
	ch, err := kb.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	go func() {
		w.Write([]byte("q"))
		w.Close()
	}()

	got := collect(t, ch)
	if len(got) != 1 || got[0] != CmdQuit {
		t.Fatalf("got %v, want [quit]", got)
	}
}

func TestKeyboard_CloseWithoutRawModeIsNil(t *testing.T) {
	kb := New(strings.NewReader(""), nil)
	if _, err := kb.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := kb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
