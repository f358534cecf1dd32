package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bryanchriswhite/DeskMirror/internal/window"
)

func TestFlags(t *testing.T) {
	tests := []struct {
		info window.Info
		want string
	}{
		{info: window.Info{}, want: "------"},
		{info: window.Info{Visible: true, AltTab: true}, want: "va----"},
		{info: window.Info{Desktop: true, Hung: true}, want: "--d--h"},
		{info: window.Info{Visible: true, Iconic: true, Zoomed: true}, want: "v--iz-"},
	}
	for _, tt := range tests {
		if got := flags(tt.info); got != tt.want {
			t.Errorf("flags(%+v) = %q; expected %q", tt.info, got, tt.want)
		}
	}
}

func TestPrintWindowsTable(t *testing.T) {
	infos := []window.Info{
		{Handle: 0x10, Title: "editor", ProcessID: 100, X: 1, Y: 2, Width: 300, Height: 200, ZOrder: 1, Visible: true},
		{Handle: 0x20, Title: "Save As", Owner: 0x10, Width: 40, Height: 20},
	}

	var buf bytes.Buffer
	if err := printWindowsTable(&buf, infos); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "HANDLE") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"0x10", "editor", "300x200+1+2", "v-----"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("row %q missing %q", lines[2], want)
		}
	}
	if !strings.Contains(lines[3], "0x10") || !strings.Contains(lines[3], "Save As") {
		t.Errorf("child row = %q", lines[3])
	}
}
