package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"runtime"
	"sync"
)

const iconSize = 32

var (
	iconOnce  sync.Once
	iconBytes []byte
)

// Icon returns the tray icon: ICO on Windows, PNG elsewhere.
func Icon() []byte {
	iconOnce.Do(func() {
		pngData := renderIcon()
		if runtime.GOOS == "windows" {
			iconBytes = wrapICO(pngData, iconSize)
		} else {
			iconBytes = pngData
		}
	})
	return iconBytes
}

// renderIcon draws a magnifying glass: a blue lens ring and a dark handle.
func renderIcon() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	ring := color.NRGBA{R: 0x03, G: 0x36, B: 0xFF, A: 0xFF}
	handle := color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}
	const cx, cy, r = 13.0, 13.0, 9.0
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			d := math.Hypot(fx-cx, fy-cy)
			switch {
			case d >= r-1.5 && d <= r+1.5:
				img.SetNRGBA(x, y, ring)
			case fx > cx+r-1 && fy > cy+r-1 && math.Abs((fx-cx)-(fy-cy)) < 2.5 && fx < iconSize-2:
				img.SetNRGBA(x, y, handle)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO embeds a PNG image in a single-entry ICO container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		BytesInRes, ImageOffset         uint32
	}{
		Width:       uint8(size % 256),
		Height:      uint8(size % 256),
		Planes:      1,
		BitCount:    32,
		BytesInRes:  uint32(len(pngData)),
		ImageOffset: 6 + 16,
	})
	buf.Write(pngData)
	return buf.Bytes()
}
