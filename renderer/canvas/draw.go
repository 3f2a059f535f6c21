package canvasrenderer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"
	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/labelkit/layout"
)

// 图片重采样的目标密度（约 300 dpi）。
const targetDPMM = 300 / 25.4

// 注意：CartesianIV 只翻转锚点坐标，路径本身仍按 y 轴向上绘制。
// 因此矩形、图片与条码都以左下角 (x, y+h) 作为锚点。

// drawLines 绘制直线列表（毫米单位）
func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetFillColor(canvas.Transparent)
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(w)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, -(ln.Y2 - ln.Y1))
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
}

// drawRects 绘制矩形
func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		w := rc.StrokeWidth
		if w <= 0 {
			w = defaultStrokeWidth
		}
		if rc.FillColor != nil {
			ctx.SetFillColor(colorFromLayout(*rc.FillColor))
		} else {
			ctx.SetFillColor(canvas.Transparent)
		}
		if rc.NoStroke {
			ctx.SetStrokeColor(canvas.Transparent)
		} else {
			ctx.SetStrokeColor(colorFromLayout(rc.StrokeColor))
		}
		ctx.SetStrokeWidth(w)
		ctx.DrawPath(rc.X, rc.Y+rc.Height, canvas.Rectangle(rc.Width, rc.Height))
	}
}

// drawPaths 绘制矢量图标：把 viewBox 坐标缩放到目标矩形，并翻转 y 轴。
func (r *Renderer) drawPaths(ctx *canvas.Context, paths []layout.PathBox) error {
	for _, pb := range paths {
		p, err := canvas.ParseSVGPath(pb.Path)
		if err != nil {
			return fmt.Errorf("解析图标路径失败: %w", err)
		}
		vb := pb.ViewBox
		if vb[2] <= 0 || vb[3] <= 0 {
			continue
		}
		sx := pb.Width / vb[2]
		sy := pb.Height / vb[3]
		p = p.Transform(canvas.Identity.Scale(sx, -sy).Translate(-vb[0], -vb[1]))
		ctx.SetFillColor(colorFromLayout(pb.Fill))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(pb.X, pb.Y, p)
	}
	return nil
}

// drawBarcodes 将一维条码绘制为矢量条，连续的黑色模块合并为一个矩形。
func (r *Renderer) drawBarcodes(ctx *canvas.Context, codes []layout.BarcodeBox) error {
	for _, bc := range codes {
		encoded, err := encodeBarcode(bc.Format, bc.Value)
		if err != nil {
			return err
		}
		bounds := encoded.Bounds()
		modules := bounds.Dx()
		if modules <= 0 {
			continue
		}
		module := bc.Width / float64(modules)
		ctx.SetFillColor(colorFromLayout(bc.Color))
		ctx.SetStrokeColor(canvas.Transparent)
		start := -1
		flush := func(end int) {
			if start < 0 {
				return
			}
			x := bc.X + float64(start-bounds.Min.X)*module
			w := float64(end-start) * module
			ctx.DrawPath(x, bc.Y+bc.Height, canvas.Rectangle(w, bc.Height))
			start = -1
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if isDark(encoded.At(x, bounds.Min.Y)) {
				if start < 0 {
					start = x
				}
				continue
			}
			flush(x)
		}
		flush(bounds.Max.X)
	}
	return nil
}

func encodeBarcode(format, value string) (barcode.Barcode, error) {
	switch format {
	case "ean13":
		code, err := ean.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("编码 EAN-13 条码 %q 失败: %w", value, err)
		}
		return code, nil
	case "code128":
		code, err := code128.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("编码 Code-128 条码 %q 失败: %w", value, err)
		}
		return code, nil
	default:
		return nil, fmt.Errorf("不支持的条码格式 %q", format)
	}
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return (r+g+b)/3 < 0x8000
}

func (r *Renderer) drawImages(ctx *canvas.Context, images []layout.ImageBox) error {
	for _, img := range images {
		if img.Src == "" || img.Width <= 0 || img.Height <= 0 {
			continue
		}
		src, err := r.loadImage(img.Src)
		if err != nil {
			return err
		}
		fitted, x, y, w, h := fitImage(src, img)
		if fitted.Bounds().Dx() == 0 || w <= 0 {
			continue
		}
		dpmm := float64(fitted.Bounds().Dx()) / w
		ctx.DrawImage(x, y+h, fitted, canvas.DPMM(dpmm))
	}
	return nil
}

// fitImage 按 fit 模式把图片放入目标框，返回处理后的图片与实际绘制区域（mm）。
// contain（默认）保持比例居中，cover 裁剪填满，stretch 拉伸填满。
func fitImage(src image.Image, box layout.ImageBox) (image.Image, float64, float64, float64, float64) {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return src, box.X, box.Y, 0, 0
	}
	tw := int(math.Max(math.Round(box.Width*targetDPMM), 1))
	th := int(math.Max(math.Round(box.Height*targetDPMM), 1))

	switch box.Fit {
	case "cover":
		return imaging.Fill(src, tw, th, imaging.Center, imaging.Lanczos), box.X, box.Y, box.Width, box.Height
	case "stretch", "fill":
		return imaging.Resize(src, tw, th, imaging.Lanczos), box.X, box.Y, box.Width, box.Height
	default:
		scale := math.Min(box.Width/float64(sw), box.Height/float64(sh))
		w, h := float64(sw)*scale, float64(sh)*scale
		x := box.X + (box.Width-w)/2
		y := box.Y + (box.Height-h)/2
		// 远大于输出密度的图片先缩小，控制 PDF 体积；二维码等小图保持原始像素
		if sw > 4*tw || sh > 4*th {
			src = imaging.Fit(src, tw, th, imaging.Lanczos)
		}
		return src, x, y, w, h
	}
}

// loadImage 支持 data URL、builtin:<name>（兼容 built-in:）以及文件路径。
func (r *Renderer) loadImage(ref string) (image.Image, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		blob, err := decodeDataURL(ref)
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码 data URL 图片失败: %w", err)
		}
		return img, nil
	case strings.HasPrefix(ref, "built-in:") || strings.HasPrefix(ref, "builtin:"):
		name := strings.TrimPrefix(strings.TrimPrefix(ref, "built-in:"), "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 builtin:%s", name)
		}
		img, _, err := image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码内置图片 builtin:%s 失败: %w", name, err)
		}
		return img, nil
	default:
		if r.baseDir == "" && !filepath.IsAbs(ref) {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 builtin: 或 data URL）", ref)
		}
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.baseDir, path)
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", ref, err)
		}
		defer file.Close()
		img, _, err := image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("解码图片 %s 失败: %w", ref, err)
		}
		return img, nil
	}
}

func decodeDataURL(ref string) ([]byte, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, fmt.Errorf("data URL 格式错误")
	}
	header, payload := ref[len("data:"):comma], ref[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("仅支持 base64 编码的 data URL")
	}
	blob, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("解码 data URL 失败: %w", err)
	}
	return blob, nil
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
