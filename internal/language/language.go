package language

import "fmt"

// Language is a transcription language the realtime endpoint accepts.
type Language struct {
	Code       string // ISO 639-1
	Name       string
	NativeName string
}

// Label is the form shown in the configure form.
func (l Language) Label() string {
	if l.NativeName == "" || l.NativeName == l.Name {
		return l.Name
	}
	return fmt.Sprintf("%s (%s)", l.NativeName, l.Name)
}

// Auto leaves language detection to the transcription model.
var Auto = Language{Code: "", Name: "Auto-detect"}

// Default is the meeting language the prompts are written for.
const Default = "ja"

// Japanese first; the rest are the whisper languages people actually
// run meetings in.
var languages = []Language{
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "pl", Name: "Polish", NativeName: "Polski"},
	{Code: "sv", Name: "Swedish", NativeName: "Svenska"},
	{Code: "tr", Name: "Turkish", NativeName: "Türkçe"},
	{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia"},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt"},
	{Code: "th", Name: "Thai", NativeName: "ไทย"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(languages)+1)
	m[""] = Auto
	for _, l := range languages {
		m[l.Code] = l
	}
	return m
}()

// Lookup finds a language by code. The empty code is Auto.
func Lookup(code string) (Language, bool) {
	l, ok := byCode[code]
	return l, ok
}

// IsValidCode reports whether code is a supported language or empty.
func IsValidCode(code string) bool {
	_, ok := byCode[code]
	return ok
}

// List returns the supported languages in display order, without Auto.
func List() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}
