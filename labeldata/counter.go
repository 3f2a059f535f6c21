package labeldata

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// CounterFormat 选择 package-counter 元素的短语模板。
type CounterFormat string

const (
	CounterPlain   CounterFormat = "plain"   // "x/y"
	CounterOf      CounterFormat = "of"      // "x of y"
	CounterPackage CounterFormat = "package" // "Package x of y"
	CounterBox     CounterFormat = "box"     // "Box x of y"
	CounterParcel  CounterFormat = "parcel"  // "Parcel x of y"
)

// CounterPhrases 是某一语言下五种模板的 fmt 格式串，均接收 (current, total)。
type CounterPhrases map[CounterFormat]string

// Phrasebook 是按语言标签索引的短语表，可通过 With 扩展，零值不可用。
type Phrasebook struct {
	tags    []language.Tag
	phrases []CounterPhrases
	matcher language.Matcher
}

// DefaultPhrasebook 返回内置英语与德语短语表，英语为回退语言。
func DefaultPhrasebook() Phrasebook {
	return newPhrasebook(
		[]language.Tag{language.English, language.German},
		[]CounterPhrases{
			{
				CounterPlain:   "%d/%d",
				CounterOf:      "%d of %d",
				CounterPackage: "Package %d of %d",
				CounterBox:     "Box %d of %d",
				CounterParcel:  "Parcel %d of %d",
			},
			{
				CounterPlain:   "%d/%d",
				CounterOf:      "%d von %d",
				CounterPackage: "Paket %d von %d",
				CounterBox:     "Karton %d von %d",
				CounterParcel:  "Packstück %d von %d",
			},
		},
	)
}

func newPhrasebook(tags []language.Tag, phrases []CounterPhrases) Phrasebook {
	return Phrasebook{tags: tags, phrases: phrases, matcher: language.NewMatcher(tags)}
}

// With 返回增加（或替换）一种语言后的新短语表，原表不变。
func (p Phrasebook) With(locale string, phrases CounterPhrases) (Phrasebook, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return p, fmt.Errorf("无法解析语言标签 %q: %w", locale, err)
	}
	tags := append([]language.Tag(nil), p.tags...)
	list := append([]CounterPhrases(nil), p.phrases...)
	for i, t := range tags {
		if t == tag {
			list[i] = phrases
			return newPhrasebook(tags, list), nil
		}
	}
	return newPhrasebook(append(tags, tag), append(list, phrases)), nil
}

// Format 生成计数短语。未知模板按 plain 处理，语言缺失该模板时回退到第一种语言。
func (p Phrasebook) Format(format CounterFormat, locale string, current, total int) string {
	if len(p.tags) == 0 {
		p = DefaultPhrasebook()
	}
	tag := matchLocale(p.matcher, locale, p.tags)
	phrases := p.phrases[0]
	for i, t := range p.tags {
		if t == tag {
			phrases = p.phrases[i]
			break
		}
	}
	tmpl, ok := phrases[format]
	if !ok {
		tmpl, ok = p.phrases[0][format]
	}
	if !ok {
		tmpl = p.phrases[0][CounterPlain]
	}
	if strings.TrimSpace(tmpl) == "" {
		tmpl = "%d/%d"
	}
	return fmt.Sprintf(tmpl, current, total)
}

// Locales 返回已注册的语言标签。
func (p Phrasebook) Locales() []string {
	out := make([]string, 0, len(p.tags))
	for _, t := range p.tags {
		out = append(out, t.String())
	}
	return out
}
