// Package qrcode 是默认的二维码生成协作方：将链接编码为 PNG data URL。
package qrcode

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/ByLCY/labelkit/labeldata"
)

const (
	defaultSize = 512
	dataURLPNG  = "data:image/png;base64,"
)

// Generator 生成二维码 PNG，Size 为输出边长（像素）。
type Generator struct {
	Size  int
	Level qr.ErrorCorrectionLevel
}

var _ labeldata.QRGenerator = (*Generator)(nil)

// New 返回默认配置（512px、M 级纠错）的生成器。
func New() *Generator { return &Generator{Size: defaultSize, Level: qr.M} }

// Generate 实现 labeldata.QRGenerator。
func (g *Generator) Generate(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if content == "" {
		return "", fmt.Errorf("二维码内容为空")
	}
	size := g.Size
	if size <= 0 {
		size = defaultSize
	}
	code, err := qr.Encode(content, g.Level, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("编码二维码失败: %w", err)
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return "", fmt.Errorf("缩放二维码失败: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("写入二维码 PNG 失败: %w", err)
	}
	return dataURLPNG + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
