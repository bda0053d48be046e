package logutil

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDebugfGated(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)
	defer SetDebug(false)

	SetDebug(false)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	SetDebug(true)
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "DEBUG: shown 2") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestRotateShiftsArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logFileName)
	for _, name := range []string{path, archiveName(path, 1), archiveName(path, 3)} {
		if err := os.WriteFile(name, []byte(filepath.Base(name)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rotate(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected base log to be moved, stat err=%v", err)
	}
	got, err := os.ReadFile(archiveName(path, 1))
	if err != nil || string(got) != logFileName {
		t.Fatalf("expected .1 to hold the previous base log, got %q err=%v", got, err)
	}
	got, err = os.ReadFile(archiveName(path, 2))
	if err != nil || string(got) != logFileName+".1" {
		t.Fatalf("expected .2 to hold the previous .1, got %q err=%v", got, err)
	}
}

func TestSetupInWritesFile(t *testing.T) {
	dir := t.TempDir()
	prev := log.Writer()
	defer log.SetOutput(prev)

	SetupIn(dir, true)
	log.Printf("hello")
	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected log line in file, got %q", data)
	}
	if w, ok := log.Writer().(*rotatingWriter); ok {
		_ = w.f.Close()
	}
}
