package engine

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeMessagesLayout(t *testing.T) {
	raw := EncodeMessages([]Message{
		{Type: MessageWindowRemoved, ID: 7, Handle: 0x1234},
	})
	if len(raw) != MessageSize {
		t.Fatalf("encoded length = %d; expected %d", len(raw), MessageSize)
	}
	if got := int32(binary.LittleEndian.Uint32(raw[0:4])); got != 1 {
		t.Errorf("type field = %d; expected 1", got)
	}
	if got := int32(binary.LittleEndian.Uint32(raw[4:8])); got != 7 {
		t.Errorf("id field = %d; expected 7", got)
	}
	if got := binary.LittleEndian.Uint64(raw[8:16]); got != 0x1234 {
		t.Errorf("handle field = %#x; expected 0x1234", got)
	}
}

func TestDecodeMessages(t *testing.T) {
	msgs := []Message{
		{Type: MessageWindowAdded, ID: 1, Handle: 0x10},
		{Type: MessageWindowAdded, ID: 2, Handle: 0x20},
		{Type: MessageType(42), ID: 3, Handle: 0x30},
		{Type: MessageNone, ID: -1, Handle: 0xffffffffffff},
	}
	raw := EncodeMessages(msgs)

	testCases := []struct {
		name    string
		raw     []byte
		count   int
		want    []Message
		wantErr error
	}{
		{"all", raw, 4, msgs, nil},
		{"prefix", raw, 2, msgs[:2], nil},
		{"empty", nil, 0, nil, nil},
		{"negative count", raw, -1, nil, nil},
		{"short buffer", raw[:MessageSize*3+5], 4, msgs[:3], ErrShortBatch},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeMessages(tc.raw, tc.count)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v; expected %v", err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseHandle(t *testing.T) {
	testCases := []struct {
		in   string
		want Handle
		ok   bool
	}{
		{"0x10", 0x10, true},
		{"16", 0x10, true},
		{" 0x3a00007 ", 0x3a00007, true},
		{"", 0, false},
		{"window", 0, false},
		{"-1", 0, false},
	}
	for _, tc := range testCases {
		got, err := ParseHandle(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParseHandle(%q) = %v, %v; expected %v, ok=%v", tc.in, got, err, tc.want, tc.ok)
		}
	}
	if s := Handle(0x20).String(); s != "0x20" {
		t.Errorf("Handle(0x20).String() = %q", s)
	}
}

func TestParseCaptureModeRoundTrip(t *testing.T) {
	for _, m := range []CaptureMode{
		CaptureModeNone,
		CaptureModePrintWindow,
		CaptureModeBitBlt,
		CaptureModeBitBltAlpha,
		CaptureModeWindowsGraphicsCapture,
	} {
		got, err := ParseCaptureMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseCaptureMode(%q) = %v, %v; expected %v", m.String(), got, err, m)
		}
	}
	if _, err := ParseCaptureMode("dxgi"); err == nil {
		t.Error("ParseCaptureMode(\"dxgi\") succeeded; expected an error")
	}
}

func TestParsePriority(t *testing.T) {
	testCases := []struct {
		in   string
		want Priority
		ok   bool
	}{
		{"high", PriorityHigh, true},
		{"Middle", PriorityMiddle, true},
		{"low", PriorityLow, true},
		{"auto", PriorityAuto, true},
		{"", PriorityAuto, true},
		{"urgent", PriorityAuto, false},
	}
	for _, tc := range testCases {
		got, err := ParsePriority(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParsePriority(%q) = %v, %v; expected %v, ok=%v", tc.in, got, err, tc.want, tc.ok)
		}
	}
}
