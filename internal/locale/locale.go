package locale

import (
	"fmt"
	"strings"
	"time"
)

const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

// DefaultLanguage is used whenever a preference is missing or unsupported.
const DefaultLanguage = LanguageEnglish

var englishMonths = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "zh") || trimmed == "cn" {
		return LanguageChinese
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// ShortMonth returns the abbreviated month name used for grid headers.
func ShortMonth(language string, month time.Month) string {
	if month < time.January || month > time.December {
		return ""
	}
	if NormalizeLanguage(language) == LanguageChinese {
		return fmt.Sprintf("%d月", int(month))
	}
	return englishMonths[month-1]
}

// MonthNamer binds ShortMonth to a language.
func MonthNamer(language string) func(time.Month) string {
	lang := NormalizeLanguage(language)
	return func(month time.Month) string {
		return ShortMonth(lang, month)
	}
}
