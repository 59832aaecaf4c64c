package aggregate

import (
	"sort"

	"masstg-export/internal/model"
)

// Summarize 按分类汇总报告；无分类的报告归入 defaultCategory。
// 转化实体按 id 去重（后出现的覆盖先出现的，保留首次出现的位置），收件人直接拼接。
func Summarize(reports []model.CampaignReport, defaultCategory string) []model.CategorySummary {
	groups := map[string]*model.CategorySummary{}
	seen := map[string]map[string]int{}
	for _, r := range reports {
		cat := r.Category
		if cat == "" {
			cat = defaultCategory
		}
		g, ok := groups[cat]
		if !ok {
			g = &model.CategorySummary{
				Category:    cat,
				CampaignIDs: []int64{},
				Recipients:  []string{},
				Converted:   []model.ConvertedEntity{},
				Kinds:       map[model.Kind]model.Stats{},
				Senders:     map[string]model.Stats{},
			}
			groups[cat] = g
			seen[cat] = map[string]int{}
		}
		st := r.Stats()
		g.Stats.Add(st)
		g.TimeRange.Include(r.CreatedAt, r.GeneratedAt)
		g.CampaignIDs = append(g.CampaignIDs, r.CampaignID)
		g.Recipients = append(g.Recipients, r.RecipientIDs...)
		for _, c := range r.ConvertedEntities {
			if i, dup := seen[cat][c.ID]; dup {
				g.Converted[i] = c
				continue
			}
			seen[cat][c.ID] = len(g.Converted)
			g.Converted = append(g.Converted, c)
		}
		ks := g.Kinds[r.Kind]
		ks.Add(st)
		g.Kinds[r.Kind] = ks
		ss := g.Senders[r.SenderID]
		ss.Add(st)
		g.Senders[r.SenderID] = ss
	}
	out := make([]model.CategorySummary, 0, len(groups))
	for _, g := range groups {
		g.Rates = g.Stats.Rates()
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
