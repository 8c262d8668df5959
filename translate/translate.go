// Package translate formats user-visible messages for the emulator packages.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

// Fallback is the locale used when the host locale cannot be detected.
const Fallback = "en-US"

var (
	printerOnce sync.Once
	printer     *message.Printer
)

// Printer returns the shared message printer, matched to the host locales.
// It is built once and only read afterwards.
func Printer() *message.Printer {
	printerOnce.Do(func() {
		locales, err := locale.GetLocales()
		if err != nil {
			log.Printf("avrsim: locale: %v", err)
		}

		if len(locales) == 0 {
			locales = []string{Fallback}
		}

		printer = message.NewPrinter(message.MatchLanguage(locales...))
	})

	return printer
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return Printer().Sprintf(key, args...)
}
