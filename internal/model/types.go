// 包 model 定义群发电报报告的数据模型（单份报告/转化实体/统计/分类汇总）。
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind 为群发来源分类。
type Kind string

const (
	KindAPI      Kind = "api"
	KindTemplate Kind = "template"
	KindGeneric  Kind = "generic"
)

// ParseKind 解析分类字符串，未知值返回错误。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAPI, KindTemplate, KindGeneric:
		return k, nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

// ConvertedEntity 为一次群发带来的转化对象。
// IsInactive 表示页面以“已不存在”形式渲染该实体。
type ConvertedEntity struct {
	ID          string `json:"id"`
	ConvertedAt int64  `json:"convertedAt"`
	IsInactive  bool   `json:"isInactive"`
}

// CampaignReport 为单次群发的导出记录，构建一次后不再修改。
type CampaignReport struct {
	CampaignID        int64             `json:"campaignId"`
	GeneratedAt       int64             `json:"generatedAt"`
	CreatedAt         int64             `json:"createdAt"`
	SenderID          string            `json:"senderId"`
	Category          string            `json:"category,omitempty"`
	Kind              Kind              `json:"kind"`
	DeliveredCount    int64             `json:"deliveredCount"`
	ReadCount         *int64            `json:"readCount,omitempty"`
	ConvertedCount    *int64            `json:"convertedCount,omitempty"`
	ConvertedEntities []ConvertedEntity `json:"convertedEntities"`
	RecipientIDs      []string          `json:"recipientIds"`
}

// Stats 返回报告自身的计数（缺失的可选计数按 0 计）。
func (r CampaignReport) Stats() Stats {
	st := Stats{Delivered: r.DeliveredCount}
	if r.ReadCount != nil {
		st.Read = *r.ReadCount
	}
	if r.ConvertedCount != nil {
		st.Converted = *r.ConvertedCount
	}
	return st
}

// legacyReport 为旧版导出脚本的 JSON 结构。
type legacyReport struct {
	TgID         int64  `json:"tgid"`
	GeneratedAt  int64  `json:"generatedAt"`
	CreatedAt    int64  `json:"createdAt"`
	Nation       string `json:"nation"`
	Category     string `json:"category"`
	Type         string `json:"type"`
	Delivered    int64  `json:"delivered"`
	ReadCount    *int64 `json:"readCount"`
	RecruitCount *int64 `json:"recruitCount"`
	Recruits     []struct {
		Name      string `json:"name"`
		Timestamp int64  `json:"timestamp"`
		CTE       bool   `json:"cte"`
	} `json:"recruits"`
	Recipients []string `json:"recipients"`
}

// DecodeReport 解析导出的报告 JSON，同时兼容旧版导出脚本的字段名。
func DecodeReport(b []byte) (CampaignReport, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return CampaignReport{}, fmt.Errorf("decode report: %w", err)
	}
	if _, ok := probe["campaignId"]; ok {
		var r CampaignReport
		if err := json.Unmarshal(b, &r); err != nil {
			return CampaignReport{}, fmt.Errorf("decode report: %w", err)
		}
		if _, err := ParseKind(string(r.Kind)); err != nil {
			return CampaignReport{}, fmt.Errorf("decode report %d: %w", r.CampaignID, err)
		}
		return r, nil
	}
	if _, ok := probe["tgid"]; !ok {
		return CampaignReport{}, fmt.Errorf("decode report: neither campaignId nor tgid present")
	}
	var lg legacyReport
	if err := json.Unmarshal(b, &lg); err != nil {
		return CampaignReport{}, fmt.Errorf("decode legacy report: %w", err)
	}
	kind, err := ParseKind(lg.Type)
	if err != nil {
		return CampaignReport{}, fmt.Errorf("decode legacy report %d: %w", lg.TgID, err)
	}
	r := CampaignReport{
		CampaignID:        lg.TgID,
		GeneratedAt:       lg.GeneratedAt,
		CreatedAt:         lg.CreatedAt,
		SenderID:          lg.Nation,
		Category:          lg.Category,
		Kind:              kind,
		DeliveredCount:    lg.Delivered,
		ReadCount:         lg.ReadCount,
		ConvertedCount:    lg.RecruitCount,
		ConvertedEntities: make([]ConvertedEntity, 0, len(lg.Recruits)),
		RecipientIDs:      lg.Recipients,
	}
	for _, rc := range lg.Recruits {
		r.ConvertedEntities = append(r.ConvertedEntities, ConvertedEntity{ID: rc.Name, ConvertedAt: rc.Timestamp, IsInactive: rc.CTE})
	}
	if r.RecipientIDs == nil {
		r.RecipientIDs = []string{}
	}
	return r, nil
}

// Stats 为送达/阅读/转化计数。
type Stats struct {
	Delivered int64 `json:"delivered"`
	Read      int64 `json:"read"`
	Converted int64 `json:"converted"`
}

// Add 累加另一份计数。
func (s *Stats) Add(o Stats) {
	s.Delivered += o.Delivered
	s.Read += o.Read
	s.Converted += o.Converted
}

// ReadRate 阅读率（百分比）。
func (s Stats) ReadRate() float64 { return percent(s.Read, s.Delivered) }

// ConvertRate 转化率（百分比）。
func (s Stats) ConvertRate() float64 { return percent(s.Converted, s.Delivered) }

// ReadToConvertRate 阅读后转化率（百分比）。
func (s Stats) ReadToConvertRate() float64 { return percent(s.Converted, s.Read) }

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// Rates 为汇总输出中的百分比指标，保留两位小数。
type Rates struct {
	Read          float64 `json:"readRate"`
	Convert       float64 `json:"convertRate"`
	ReadToConvert float64 `json:"readToConvertRate"`
}

// Rates 计算三项比率。
func (s Stats) Rates() Rates {
	return Rates{
		Read:          round2(s.ReadRate()),
		Convert:       round2(s.ConvertRate()),
		ReadToConvert: round2(s.ReadToConvertRate()),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// TimeRange 为 unix 秒区间；零值表示尚未包含任何报告。
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Include 扩展区间以覆盖 [start, end]。
func (t *TimeRange) Include(start, end int64) {
	if t.Start == 0 || start < t.Start {
		t.Start = start
	}
	if end > t.End {
		t.End = end
	}
}

// CategorySummary 为同一分类下多份报告的汇总。
type CategorySummary struct {
	Category    string            `json:"category"`
	Stats       Stats             `json:"stats"`
	Rates       Rates             `json:"rates"`
	TimeRange   TimeRange         `json:"timeRange"`
	CampaignIDs []int64           `json:"campaignIds"`
	Recipients  []string          `json:"recipients"`
	Converted   []ConvertedEntity `json:"converted"`
	Kinds       map[Kind]Stats    `json:"kinds"`
	Senders     map[string]Stats  `json:"senders"`
}

// Summary 为 summary.json 顶层结构：全部分类的总计、按来源与按发送者的总计，以及各分类明细。
type Summary struct {
	Stats      Stats             `json:"stats"`
	Rates      Rates             `json:"rates"`
	Kinds      map[Kind]Stats    `json:"kinds"`
	Senders    map[string]Stats  `json:"senders"`
	Categories []CategorySummary `json:"categories"`
}
