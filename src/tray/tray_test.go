package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"strings"
	"testing"

	"screen-magnifier/src/config"
	"screen-magnifier/src/singleinstance"
)

func TestRenderIconIsPNG(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(renderIcon()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Errorf("icon is %v", b)
	}
}

func TestWrapICO(t *testing.T) {
	payload := []byte("png-bytes")
	ico := wrapICO(payload, 32)
	if len(ico) != 22+len(payload) {
		t.Fatalf("ico length %d", len(ico))
	}
	if binary.LittleEndian.Uint16(ico[2:]) != 1 || binary.LittleEndian.Uint16(ico[4:]) != 1 {
		t.Errorf("bad ICONDIR header % x", ico[:6])
	}
	if ico[6] != 32 || ico[7] != 32 {
		t.Errorf("bad size %d x %d", ico[6], ico[7])
	}
	if binary.LittleEndian.Uint32(ico[14:]) != uint32(len(payload)) {
		t.Errorf("bad resource size")
	}
	if !bytes.Equal(ico[22:], payload) {
		t.Errorf("payload not appended")
	}
}

func TestNewRequiresSubmit(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without Submit")
	}
	tr, err := New(Config{Submit: func(singleinstance.Request) {}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.cfg.Title != "Screen Magnifier" {
		t.Errorf("default title = %q", tr.cfg.Title)
	}
	// before the menu exists this must be a no-op
	tr.SetState(true, true, "Sepia")
}

func TestAboutText(t *testing.T) {
	SetAboutExtra("Resident TCP port: 49560")
	defer SetAboutExtra("")
	text := aboutText(Config{Title: "Screen Magnifier", Hotkeys: config.Hotkeys{ZoomIn: "Ctrl+Alt+Up"}})
	for _, want := range []string{"Zoom in: Ctrl+Alt+Up", "Resident TCP port: 49560"} {
		if !strings.Contains(text, want) {
			t.Errorf("about text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Zoom out") {
		t.Errorf("unset hotkeys should be omitted")
	}
}

func TestWithHotkey(t *testing.T) {
	if got := withHotkey("Zoom in", "Ctrl+Alt+Up"); got != "Zoom in\tCtrl+Alt+Up" {
		t.Errorf("got %q", got)
	}
	if got := withHotkey("Zoom in", ""); got != "Zoom in" {
		t.Errorf("got %q", got)
	}
}
