// Package i18n translates rmmvlt's console output: log lines, command
// help and status tables. It has nothing to do with the game translations
// rmmvlt manages.
//
// Catalogs are gettext .po files under locales/<lang>/LC_MESSAGES/rmmvlt.po,
// embedded at build time and read through gotext. RMMVLT_LANG selects the
// language explicitly; otherwise the usual gettext environment applies.
// Messages without a translation print in English.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "rmmvlt"

// LangEnv overrides the locale environment for rmmvlt's own messages.
const LangEnv = "RMMVLT_LANG"

var po *gotext.Locale

// Init loads the catalog for lang, or for the detected language when lang
// is empty. Call it once before T or N.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates msgid, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N picks the plural form of a message for n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// Languages returns the languages with an embedded catalog, sorted.
func Languages() []string {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	return langs
}

func detectLanguage() string {
	// RMMVLT_LANG, then gettext order: LANGUAGE, LC_ALL, LC_MESSAGES, LANG.
	for _, env := range []string{LangEnv, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			if env == "LANGUAGE" {
				parts := strings.SplitN(val, ":", 2)
				val = parts[0]
			}
			// ru_RU.UTF-8 -> ru_RU
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
