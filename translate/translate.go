// Package translate formats user-visible assembler messages for the
// locale of the running process.
package translate

import (
	"github.com/golang/glog"
	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	tag     language.Tag
	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		glog.Warningf("asm8: locale: %v", err)
	}

	// en-US is the language the messages are written in.
	tag = message.MatchLanguage(append(locales, "en-US")...)
	printer = message.NewPrinter(tag)
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Language is the tag selected for message output.
func Language() language.Tag {
	return tag
}
