// 包 aggregate 负责多份报告的导入与汇总：
// - 并发读取目录中的报告 JSON（兼容旧版导出格式）
// - 写入 SQLite 或极简模式下的内存缓冲
// - 按分类汇总计数、时间范围、收件人与转化实体
package aggregate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"masstg-export/internal/config"
	"masstg-export/internal/logx"
	"masstg-export/internal/model"
	"masstg-export/internal/store"
)

// Runner 导入执行器，持有配置/存储；极简模式下仅使用内存缓冲。
type Runner struct {
	cfg   *config.Config
	store *store.SQLite
	buf   *SimpleBuffer
}

// Result 为一次导入的统计。
type Result struct {
	Imported int
	Failed   int
}

// New 创建 Runner。
func New(cfg *config.Config, s *store.SQLite) *Runner {
	r := &Runner{cfg: cfg, store: s}
	if cfg == nil || cfg.SimpleMode || s == nil {
		r.buf = NewSimpleBuffer()
	}
	return r
}

// Import 读取 dir 下全部 *.json 报告；单个文件失败只记录日志，不中断其余文件。
func (r *Runner) Import(ctx context.Context, dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	logx.Infof("%s 发现 %d 个报告文件", dir, len(files))

	workers := 4
	if r.cfg != nil && r.cfg.Concurrency.Workers > 0 {
		workers = r.cfg.Concurrency.Workers
	}
	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, workers)
	for _, path := range files {
		path := path
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			err := r.importFile(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				logx.Warnf("导入失败：%s 错误=%v", path, err)
				return
			}
			res.Imported++
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// importFile 解析单个报告文件并写入存储。
func (r *Runner) importFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	rep, err := model.DecodeReport(b)
	if err != nil {
		return err
	}
	return r.Save(ctx, rep)
}

// Save 写入单份报告（缓冲或数据库）。
func (r *Runner) Save(ctx context.Context, rep model.CampaignReport) error {
	if r.buf != nil {
		r.buf.Add(rep)
		return nil
	}
	return r.store.SaveReport(ctx, rep)
}

// Reports 返回已导入的全部报告，按 campaignId 升序。
func (r *Runner) Reports(ctx context.Context) ([]model.CampaignReport, error) {
	if r.buf != nil {
		return r.buf.Snapshot(), nil
	}
	return r.store.ListReports(ctx)
}
