package domain

import "github.com/abadojack/whatlanggo"

// DetectLanguage tags message content with an ISO 639-3 code.
// Short or ambiguous content yields "" rather than a wrong guess.
func DetectLanguage(content string) string {
	if content == "" {
		return ""
	}
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
