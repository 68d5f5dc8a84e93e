package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// 支持的语言
const (
	LocaleEN = "en-US"
	LocaleFR = "fr-FR"
	LocaleZH = "zh-CN"
)

// DefaultLocale 无法识别时回退的语言
const DefaultLocale = LocaleEN

var (
	supportedTags = []language.Tag{
		language.AmericanEnglish,
		language.MustParse(LocaleFR),
		language.SimplifiedChinese,
	}
	tagLocales = []string{LocaleEN, LocaleFR, LocaleZH}
	matcher    = language.NewMatcher(supportedTags)
)

// ResolveLocale 依次读取 ?lang=、X-Locale 与 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	if lang := strings.TrimSpace(c.GetHeader("X-Locale")); lang != "" {
		return NormalizeLocale(lang)
	}
	header := strings.TrimSpace(c.GetHeader("Accept-Language"))
	if header == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	return match(tags...)
}

// NormalizeLocale 将任意语言标签归一化为支持的语言
func NormalizeLocale(raw string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(raw), "_", "-"))
	if err != nil {
		return DefaultLocale
	}
	return match(tag)
}

func match(tags ...language.Tag) string {
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(tagLocales) {
		return DefaultLocale
	}
	return tagLocales[index]
}

// T 翻译文案，缺失时回退英文，再回退 key
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 带参数的翻译
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
