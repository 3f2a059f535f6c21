package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink 接收导出的文档，例如写入目录或上传到存储。
type Sink interface {
	Write(ctx context.Context, doc Document) error
}

// SinkFunc 把普通函数适配为 Sink。
type SinkFunc func(ctx context.Context, doc Document) error

// Write 实现 Sink。
func (f SinkFunc) Write(ctx context.Context, doc Document) error { return f(ctx, doc) }

// DirSink 把文档写入目录，目录不存在时自动创建。
type DirSink struct {
	Dir string
}

// Write 实现 Sink。
func (s DirSink) Write(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.Name == "" || filepath.Base(doc.Name) != doc.Name {
		return fmt.Errorf("非法的文档名 %q", doc.Name)
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, doc.Name), doc.Data, 0o644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", doc.Name, err)
	}
	return nil
}

// Collector 在内存中收集文档，按写入顺序保存。
type Collector struct {
	Documents []Document
}

// Write 实现 Sink。
func (c *Collector) Write(_ context.Context, doc Document) error {
	c.Documents = append(c.Documents, doc)
	return nil
}
