//go:build !windows

package tray

import "log"

func showMessage(title, message string) {
	log.Printf("TRAY: %s\n%s", title, message)
}
