package models

import (
	"fmt"
	"strings"
	"time"
)

// AppLanguage selects the display language for user-facing text.
type AppLanguage string

const (
	LangFA AppLanguage = "fa"
	LangEN AppLanguage = "en"
)

// AppTheme is one of the three named UI palettes. The server only stores it;
// rendering is the client's concern.
type AppTheme string

const (
	ThemeDark        AppTheme = "dark"
	ThemeWhiteOrange AppTheme = "white-orange"
	ThemeOrangeWhite AppTheme = "orange-white"
)

// AppSettings is the process-wide configuration edited from the settings
// screen. It is persisted as individual Setting rows and loaded with merge
// semantics: rows that are missing keep the hardcoded default.
type AppSettings struct {
	DefaultReceiver   string      `json:"defaultReceiver"`
	DefaultTechnician string      `json:"defaultTechnician"`
	Language          AppLanguage `json:"language"`
	Theme             AppTheme    `json:"theme"`
}

// DefaultSettings returns the hardcoded settings used before anything has
// been saved.
func DefaultSettings() AppSettings {
	return AppSettings{
		DefaultReceiver:   "",
		DefaultTechnician: "",
		Language:          LangFA,
		Theme:             ThemeDark,
	}
}

// Setting is one persisted settings key-value pair.
type Setting struct {
	Key   string `gorm:"primarykey" json:"key"`
	Value string `json:"value"`
}

var persianDigits = strings.NewReplacer(
	"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
	"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
)

// FormatTimestamp renders t as a locale-dependent display string, matching
// the captured-at-creation call log dates. FA dates are Jalali with Persian
// digits. The value is display-only and is never parsed back.
func FormatTimestamp(t time.Time, lang AppLanguage) string {
	if lang == LangFA {
		jy, jm, jd := toJalali(t.Year(), int(t.Month()), t.Day())
		stamp := fmt.Sprintf("%04d/%02d/%02d، %s", jy, jm, jd, t.Format("15:04:05"))
		return persianDigits.Replace(stamp)
	}
	return t.Format("1/2/2006, 3:04:05 PM")
}
