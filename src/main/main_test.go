package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"screen-magnifier/src/config"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"screen-magnifier", "-debug", "-settings", "/tmp/s.toml"},
			out:  []string{"screen-magnifier", "--debug", "--settings", "/tmp/s.toml"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"screen-magnifier", "-debug=false", "-settings=/tmp/s.toml"},
			out:  []string{"screen-magnifier", "--debug=false", "--settings=/tmp/s.toml"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"screen-magnifier", "--no-tray", "-x"},
			out:  []string{"screen-magnifier", "--no-tray", "-x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--debug", "--settings", "/tmp/s.toml", "--no-tray"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.debug || !opts.noTray {
		t.Fatalf("Expected debug and no-tray, got %+v", opts)
	}
	if opts.settingsPath != "/tmp/s.toml" {
		t.Fatalf("Expected settingsPath=/tmp/s.toml, got %q", opts.settingsPath)
	}
}

type fakeClient struct {
	delegated bool
	err       error
	called    bool
	req       singleinstance.Request
}

func (f *fakeClient) Send(ctx context.Context, req singleinstance.Request) (bool, string, error) {
	f.called = true
	f.req = req
	return f.delegated, "magnifier:\n  running: true\n", f.err
}

func TestHandleStartWithDelegation_ResidentExists(t *testing.T) {
	client := &fakeClient{delegated: true}
	started := false

	err := handleStartWithDelegation(context.Background(), client, func() error {
		started = true
		return nil
	})

	if !errors.Is(err, errAlreadyRunning) {
		t.Fatalf("Expected errAlreadyRunning, got %v", err)
	}
	if started {
		t.Fatal("Did not expect a second resident to start")
	}
	if client.req.Command != singleinstance.CmdStatus {
		t.Fatalf("Expected a STATUS probe, got %s", client.req)
	}
}

func TestHandleStartWithDelegation_NoResident(t *testing.T) {
	client := &fakeClient{}
	started := false

	if err := handleStartWithDelegation(context.Background(), client, func() error {
		started = true
		return nil
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !client.called || !started {
		t.Fatal("Expected the probe and then a start")
	}
}

func TestHandleStartWithDelegation_ScanErrorStarts(t *testing.T) {
	client := &fakeClient{err: errors.New("busy")}
	startErr := errors.New("boom")

	err := handleStartWithDelegation(context.Background(), client, func() error { return startErr })
	if !errors.Is(err, startErr) {
		t.Fatalf("Expected the start error, got %v", err)
	}
}

func TestSavePlacementStoresFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	store, err := config.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	frame := geometry.Rect{Left: 320, Top: 240, Width: 500, Height: 400}
	if err := savePlacement(store, frame); err != nil {
		t.Fatalf("savePlacement: %v", err)
	}

	again, err := config.OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.Get().Magnifier.Window.Rect(); got != frame {
		t.Errorf("restored placement %+v, want %+v", got, frame)
	}
}
