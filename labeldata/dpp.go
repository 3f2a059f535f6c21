package labeldata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ResolverFormat 选择 DPP 链接格式。
type ResolverFormat string

const (
	ResolverDefault      ResolverFormat = "default"       // {BaseURL}/p/{gtin}/{serial}
	ResolverGS1          ResolverFormat = "gs1"           // https://id.gs1.org/01/{gtin}/21/{serial}
	ResolverCustomDomain ResolverFormat = "custom-domain" // https://{domain}/01/{gtin}/21/{serial}
)

const gs1ResolverHost = "id.gs1.org"

// DPPURLOptions 配置链接的生成方式。
type DPPURLOptions struct {
	Format       ResolverFormat
	CustomDomain string
	BaseURL      string
}

// BuildDPPURL 生成二维码中嵌入的面向消费者的产品护照链接。
// serial 为空时省略 /21/{serial} 或 /{serial} 段；custom-domain 缺少域名时退回 GS1 标准路径。
func BuildDPPURL(gtin, serial string, opts DPPURLOptions) string {
	gtin = url.PathEscape(strings.TrimSpace(gtin))
	serial = url.PathEscape(strings.TrimSpace(serial))

	switch opts.Format {
	case ResolverCustomDomain:
		domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(opts.CustomDomain), "https://"), "http://"), "/")
		if domain == "" {
			return gs1Path(gs1ResolverHost, gtin, serial)
		}
		return gs1Path(domain, gtin, serial)
	case ResolverGS1:
		return gs1Path(gs1ResolverHost, gtin, serial)
	default:
		base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
		u := base + "/p/" + gtin
		if serial != "" {
			u += "/" + serial
		}
		return u
	}
}

func gs1Path(host, gtin, serial string) string {
	u := "https://" + host + "/01/" + gtin
	if serial != "" {
		u += "/21/" + serial
	}
	return u
}

// QRGenerator 是外部二维码生成协作方：给定链接，返回可嵌入的图片 data URL。
type QRGenerator interface {
	Generate(ctx context.Context, content string) (string, error)
}

// ErrQRGeneration 标记二维码生成失败；调用方据此记录日志并继续组装。
var ErrQRGeneration = errors.New("qr generation failed")

// PrepareDPPQR 等待一次二维码生成。失败时返回不含图片的 DPPQR 与包装了 ErrQRGeneration 的错误，
// 调用方可以继续组装与渲染（qr-code 元素会降级）。
func PrepareDPPQR(ctx context.Context, gen QRGenerator, dppURL, labelText string) (DPPQR, error) {
	qr := DPPQR{DPPURL: dppURL, LabelText: labelText}
	if gen == nil || strings.TrimSpace(dppURL) == "" {
		return qr, fmt.Errorf("%w: 缺少生成器或链接", ErrQRGeneration)
	}
	dataURL, err := gen.Generate(ctx, dppURL)
	if err != nil {
		return qr, fmt.Errorf("%w: %v", ErrQRGeneration, err)
	}
	qr.QRDataURL = dataURL
	return qr, nil
}
