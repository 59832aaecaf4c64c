package aggregate

import (
	"sort"
	"sync"

	"masstg-export/internal/model"
)

// SimpleBuffer 在极简模式下收集报告，避免落库；同一 campaignId 后写覆盖先写。
type SimpleBuffer struct {
	mu      sync.Mutex
	reports map[int64]model.CampaignReport
}

func NewSimpleBuffer() *SimpleBuffer {
	return &SimpleBuffer{reports: make(map[int64]model.CampaignReport)}
}

func (b *SimpleBuffer) Add(r model.CampaignReport) {
	b.mu.Lock()
	b.reports[r.CampaignID] = r
	b.mu.Unlock()
}

func (b *SimpleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reports)
}

// Snapshot 返回按 campaignId 升序的副本。
func (b *SimpleBuffer) Snapshot() []model.CampaignReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.CampaignReport, 0, len(b.reports))
	for _, v := range b.reports {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CampaignID < out[j].CampaignID })
	return out
}
