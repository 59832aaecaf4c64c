// 包 extract 从已展开的群发电报报告页提取 CampaignReport：
// - 身份解析：从导航链接取群发 ID，从页面地址取可选分类
// - 前置检查：按顺序确认各展开操作已完成，首个失败即中止并给出唯一提示
// - 记录组装：读取计数、转化实体与收件人，名称统一规范化
package extract

import (
	"errors"
	"time"

	"masstg-export/internal/diag"
	"masstg-export/internal/logx"
	"masstg-export/internal/model"
	"masstg-export/internal/page"
	"masstg-export/internal/rules"
)

// Extractor 持有预设与时钟；不保存任何跨调用状态，可重复调用。
type Extractor struct {
	preset   rules.Preset
	identity *IdentityResolver
	now      func() time.Time
}

// New 创建 Extractor，预设中的空字段使用内置预设补齐。
func New(p rules.Preset) (*Extractor, error) {
	p = p.WithDefaults()
	ir, err := NewIdentityResolver(p)
	if err != nil {
		return nil, err
	}
	return &Extractor{preset: p, identity: ir, now: time.Now}, nil
}

// WithClock 替换生成时间所用的时钟。
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	cp := *e
	cp.now = now
	return &cp
}

// Preset 返回生效的预设。
func (e *Extractor) Preset() rules.Preset { return e.preset }

// ResolveIdentity 仅执行身份解析。
func (e *Extractor) ResolveIdentity(doc *page.Document) (Identity, error) {
	return e.identity.Resolve(doc)
}

// Extract 执行完整流程。前置检查或组装失败时通过 slot 显示唯一提示并返回错误，
// 不产生任何部分记录；成功时清空 slot。slot 可为 nil。
func (e *Extractor) Extract(doc *page.Document, slot diag.Slot) (*model.CampaignReport, error) {
	if slot == nil {
		slot = diag.Tee(nil)
	}
	id, err := e.identity.Resolve(doc)
	if err != nil {
		return nil, err
	}
	logx.Debugf("群发 ID=%d 分类=%q", id.CampaignID, id.Category)

	for _, g := range Gates(e.preset, id.CampaignID) {
		if o := g.Run(doc); !o.Passed {
			logx.Debugf("前置检查未通过：%s", g.Gate)
			return nil, surface(slot, g.fail())
		}
	}

	a := &assembler{doc: doc, p: e.preset, id: id}
	r, err := a.assemble()
	if err != nil {
		return nil, surface(slot, err)
	}
	r.GeneratedAt = e.now().Unix()
	slot.Clear()
	return r, nil
}

// surface 将可展示的错误写入 slot（替换旧提示）。
func surface(slot diag.Slot, err error) error {
	var d Diagnostic
	if errors.As(err, &d) {
		slot.Show(d.Diagnostic())
	}
	return err
}
