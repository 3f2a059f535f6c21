// Package store 把标签设计持久化到 PostgreSQL。设计整体以 JSONB 保存。
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ByLCY/labelkit/design"
)

// ErrNotFound 表示设计不存在。
var ErrNotFound = errors.New("设计不存在")

// Schema 是 label_designs 表结构，Migrate 会执行它。
const Schema = `
CREATE TABLE IF NOT EXISTS label_designs (
	design_id  UUID PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Open 打开 PostgreSQL 连接并测试连通性。
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return db, nil
}

// Summary 是列表页使用的设计摘要。
type Summary struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}

// DesignStore 设计仓库
type DesignStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDesignStore 创建设计仓库
func NewDesignStore(db *sql.DB, logger *zap.Logger) *DesignStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DesignStore{db: db, logger: logger}
}

// Migrate 创建所需的表。
func (s *DesignStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("创建 label_designs 表失败: %w", err)
	}
	return nil
}

// Get 按 ID 读取设计。
func (s *DesignStore) Get(ctx context.Context, id string) (*design.LabelDesign, error) {
	query := `SELECT body FROM label_designs WHERE design_id = $1`

	var body []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("查询设计 %s 失败: %w", id, err)
	}
	return decode(id, body)
}

// GetMany 按 ID 批量读取设计，结果按 ID 索引；不存在的 ID 不出现在结果中。
func (s *DesignStore) GetMany(ctx context.Context, ids []string) (map[string]*design.LabelDesign, error) {
	out := make(map[string]*design.LabelDesign, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT design_id, body FROM label_designs WHERE design_id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("批量查询设计失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("读取设计行失败: %w", err)
		}
		d, err := decode(id, body)
		if err != nil {
			return nil, err
		}
		out[id] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历设计失败: %w", err)
	}
	return out, nil
}

// Save 插入或更新设计。ID 为空时分配新的 UUID 并写回 d.ID。
func (s *DesignStore) Save(ctx context.Context, d *design.LabelDesign) (string, error) {
	if d == nil {
		return "", errors.New("设计为空")
	}
	if err := d.Check(); err != nil {
		return "", err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(d); err != nil {
		return "", fmt.Errorf("编码设计 %s 失败: %w", d.ID, err)
	}

	query := `
		INSERT INTO label_designs (design_id, name, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (design_id) DO UPDATE
		SET name = EXCLUDED.name, body = EXCLUDED.body, updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, d.ID, d.Name, buf.Bytes()); err != nil {
		return "", fmt.Errorf("保存设计 %s 失败: %w", d.ID, err)
	}
	s.logger.Debug("设计已保存", zap.String("design_id", d.ID), zap.String("name", d.Name))
	return d.ID, nil
}

// List 按更新时间倒序列出设计摘要。
func (s *DesignStore) List(ctx context.Context) ([]Summary, error) {
	query := `SELECT design_id, name, updated_at FROM label_designs ORDER BY updated_at DESC, design_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("列出设计失败: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("读取设计摘要失败: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历设计摘要失败: %w", err)
	}
	return out, nil
}

// Delete 删除设计。
func (s *DesignStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM label_designs WHERE design_id = $1`, id)
	if err != nil {
		return fmt.Errorf("删除设计 %s 失败: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("删除设计 %s 失败: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func decode(id string, body []byte) (*design.LabelDesign, error) {
	d, err := design.LoadJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("设计 %s 数据损坏: %w", id, err)
	}
	if d.ID == "" {
		d.ID = id
	}
	return d, nil
}
