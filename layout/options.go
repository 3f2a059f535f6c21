package layout

import (
	"go.uber.org/zap"

	"github.com/ByLCY/labelkit/labeldata"
)

// BuildOptions 配置布局阶段所需的依赖，例如排版后端与计数短语表。
type BuildOptions struct {
	Typesetter Typesetter
	Logger     *zap.Logger

	// 以下字段只影响 package-counter 元素；元素自身的 format/locale 优先。
	Phrasebook    labeldata.Phrasebook
	CounterFormat labeldata.CounterFormat
	Locale        string
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// width、fontSize、lineHeight 均为毫米。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}

func (o BuildOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
