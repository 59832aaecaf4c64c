package export

import (
	"encoding/json"
	"fmt"
	"os"

	"masstg-export/internal/model"
)

// SummaryToJSON 将分类汇总写入 JSON 文件（带缩进格式），顶层附总计、比率以及跨分类的按来源/按发送者总计。
func SummaryToJSON(categories []model.CategorySummary, path string) error {
	out := model.Summary{
		Kinds:      map[model.Kind]model.Stats{},
		Senders:    map[string]model.Stats{},
		Categories: categories,
	}
	for _, c := range categories {
		out.Stats.Add(c.Stats)
		for k, st := range c.Kinds {
			acc := out.Kinds[k]
			acc.Add(st)
			out.Kinds[k] = acc
		}
		for n, st := range c.Senders {
			acc := out.Senders[n]
			acc.Add(st)
			out.Senders[n] = acc
		}
	}
	out.Rates = out.Stats.Rates()
	if out.Categories == nil {
		out.Categories = []model.CategorySummary{}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}
