// 包 store 提供报告归档（SQLite），包含表迁移/写入/查询/清理等操作。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"masstg-export/internal/model"
)

// ErrNotFound 表示报告不存在。
var ErrNotFound = errors.New("report not found")

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空全部报告数据（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	for _, t := range []string{"recipients", "converted", "reports"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return fmt.Errorf("delete %s: %w", t, err)
		}
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
            campaign_id INTEGER PRIMARY KEY,
            generated_at INTEGER NOT NULL,
            created_at INTEGER NOT NULL,
            sender_id TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            kind TEXT NOT NULL,
            delivered INTEGER NOT NULL,
            read_count INTEGER,
            converted_count INTEGER
        );`,
		`CREATE TABLE IF NOT EXISTS converted (
            campaign_id INTEGER NOT NULL,
            position INTEGER NOT NULL,
            entity_id TEXT NOT NULL,
            converted_at INTEGER NOT NULL,
            inactive INTEGER NOT NULL,
            PRIMARY KEY (campaign_id, position)
        );`,
		`CREATE TABLE IF NOT EXISTS recipients (
            campaign_id INTEGER NOT NULL,
            position INTEGER NOT NULL,
            entity_id TEXT NOT NULL,
            PRIMARY KEY (campaign_id, position)
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// SaveReport 在一个事务内写入报告：同一 campaign_id 再次保存时整体替换。
func (s *SQLite) SaveReport(ctx context.Context, r model.CampaignReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %d: %w", r.CampaignID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO reports(campaign_id, generated_at, created_at, sender_id, category, kind, delivered, read_count, converted_count)
        VALUES(?,?,?,?,?,?,?,?,?)
        ON CONFLICT(campaign_id) DO UPDATE SET generated_at=excluded.generated_at, created_at=excluded.created_at,
            sender_id=excluded.sender_id, category=excluded.category, kind=excluded.kind, delivered=excluded.delivered,
            read_count=excluded.read_count, converted_count=excluded.converted_count`,
		r.CampaignID, r.GeneratedAt, r.CreatedAt, r.SenderID, r.Category, string(r.Kind), r.DeliveredCount,
		nullInt(r.ReadCount), nullInt(r.ConvertedCount))
	if err != nil {
		return fmt.Errorf("upsert report %d: %w", r.CampaignID, err)
	}
	for _, t := range []string{"converted", "recipients"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t+` WHERE campaign_id = ?`, r.CampaignID); err != nil {
			return fmt.Errorf("clear %s of %d: %w", t, r.CampaignID, err)
		}
	}
	for i, c := range r.ConvertedEntities {
		if _, err := tx.ExecContext(ctx, `INSERT INTO converted(campaign_id, position, entity_id, converted_at, inactive) VALUES(?,?,?,?,?)`,
			r.CampaignID, i, c.ID, c.ConvertedAt, c.IsInactive); err != nil {
			return fmt.Errorf("insert converted %s of %d: %w", c.ID, r.CampaignID, err)
		}
	}
	for i, id := range r.RecipientIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO recipients(campaign_id, position, entity_id) VALUES(?,?,?)`,
			r.CampaignID, i, id); err != nil {
			return fmt.Errorf("insert recipient %s of %d: %w", id, r.CampaignID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save %d: %w", r.CampaignID, err)
	}
	return nil
}

// GetReport 读取单份报告，列表顺序与保存时一致。
func (s *SQLite) GetReport(ctx context.Context, id int64) (model.CampaignReport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT campaign_id, generated_at, created_at, sender_id, category, kind, delivered, read_count, converted_count
        FROM reports WHERE campaign_id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CampaignReport{}, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.CampaignReport{}, fmt.Errorf("scan report %d: %w", id, err)
	}
	if err := s.loadLists(ctx, &r); err != nil {
		return model.CampaignReport{}, err
	}
	return r, nil
}

// ListReports 返回全部报告，按 campaign_id 升序。
func (s *SQLite) ListReports(ctx context.Context) ([]model.CampaignReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT campaign_id, generated_at, created_at, sender_id, category, kind, delivered, read_count, converted_count
        FROM reports ORDER BY campaign_id`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	var out []model.CampaignReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reports: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	// 单连接：先关闭游标再查询子表
	rows.Close()
	for i := range out {
		if err := s.loadLists(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (model.CampaignReport, error) {
	var r model.CampaignReport
	var kind string
	var read, converted sql.NullInt64
	if err := sc.Scan(&r.CampaignID, &r.GeneratedAt, &r.CreatedAt, &r.SenderID, &r.Category, &kind, &r.DeliveredCount, &read, &converted); err != nil {
		return r, err
	}
	r.Kind = model.Kind(kind)
	if read.Valid {
		v := read.Int64
		r.ReadCount = &v
	}
	if converted.Valid {
		v := converted.Int64
		r.ConvertedCount = &v
	}
	return r, nil
}

func (s *SQLite) loadLists(ctx context.Context, r *model.CampaignReport) error {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_id, converted_at, inactive FROM converted WHERE campaign_id = ? ORDER BY position`, r.CampaignID)
	if err != nil {
		return fmt.Errorf("query converted of %d: %w", r.CampaignID, err)
	}
	r.ConvertedEntities = []model.ConvertedEntity{}
	for rows.Next() {
		var c model.ConvertedEntity
		if err := rows.Scan(&c.ID, &c.ConvertedAt, &c.IsInactive); err != nil {
			rows.Close()
			return fmt.Errorf("scan converted of %d: %w", r.CampaignID, err)
		}
		r.ConvertedEntities = append(r.ConvertedEntities, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate converted of %d: %w", r.CampaignID, err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT entity_id FROM recipients WHERE campaign_id = ? ORDER BY position`, r.CampaignID)
	if err != nil {
		return fmt.Errorf("query recipients of %d: %w", r.CampaignID, err)
	}
	defer rows.Close()
	r.RecipientIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan recipients of %d: %w", r.CampaignID, err)
		}
		r.RecipientIDs = append(r.RecipientIDs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate recipients of %d: %w", r.CampaignID, err)
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
