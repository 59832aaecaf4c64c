package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"masstg-export/internal/model"
	"masstg-export/internal/names"
	"masstg-export/internal/page"
	"masstg-export/internal/rules"
)

// assembler 在所有前置检查通过后遍历已展开的子树组装记录。
type assembler struct {
	doc *page.Document
	p   rules.Preset
	id  Identity
}

func (a *assembler) assemble() (*model.CampaignReport, error) {
	r := &model.CampaignReport{
		CampaignID: a.id.CampaignID,
		Category:   a.id.Category,
		Kind:       ClassifyKind(page.Text(a.doc.Find(a.p.Header).First()), a.p),
	}
	var err error
	if r.CreatedAt, err = a.createdAt(); err != nil {
		return nil, err
	}
	if r.SenderID, err = a.sender(); err != nil {
		return nil, err
	}
	if r.DeliveredCount, err = a.delivered(); err != nil {
		return nil, err
	}
	if r.ReadCount, r.ConvertedCount, err = a.summaryCounts(); err != nil {
		return nil, err
	}
	if r.ConvertedEntities, err = a.convertedEntities(); err != nil {
		return nil, err
	}
	if r.RecipientIDs, err = a.recipients(); err != nil {
		return nil, err
	}
	return r, nil
}

// ClassifyKind 按固定优先级匹配头部文本：api > template > generic。
func ClassifyKind(header string, p rules.Preset) model.Kind {
	switch {
	case strings.Contains(header, p.APIMarker):
		return model.KindAPI
	case strings.Contains(header, p.TemplateMarker):
		return model.KindTemplate
	default:
		return model.KindGeneric
	}
}

// createdAt 只读取第一个发送行的第一个子节点。
func (a *assembler) createdAt() (int64, error) {
	child := a.doc.Find(a.p.SentLine).First().Children().First()
	if child.Length() == 0 {
		return 0, &FieldError{Field: "createdAt", Err: errMissingNode}
	}
	raw := page.Value(child, a.p.CreatedAt)
	ts, err := parseEpoch(raw)
	if err != nil {
		return 0, &FieldError{Field: "createdAt", Value: raw, Err: err}
	}
	return ts, nil
}

func (a *assembler) sender() (string, error) {
	el := a.doc.Find(a.p.Sender).First()
	if el.Length() == 0 {
		return "", &FieldError{Field: "senderId", Err: errMissingNode}
	}
	return names.Normalize(page.Text(el)), nil
}

func (a *assembler) delivered() (int64, error) {
	summary := a.doc.Find(a.p.Summary).First()
	node := summary.Children().Eq(a.p.SummaryCountChild).Find(a.p.CountNode).First()
	if node.Length() == 0 {
		return 0, &FieldError{Field: "deliveredCount", Err: errMissingNode}
	}
	raw := page.Text(node)
	n, err := ParseCount(raw)
	if err != nil {
		return 0, &FieldError{Field: "deliveredCount", Value: raw, Err: err}
	}
	return n, nil
}

// summaryCounts 遍历全部招募类汇总条目：含阅读标记的计为阅读数，其余计为转化数。
func (a *assembler) summaryCounts() (read, converted *int64, err error) {
	if c := recheck(GateSummaryPresent, a.p.RecruitEntries); !c.Run(a.doc).Passed {
		return nil, nil, c.fail()
	}
	a.doc.Find(a.p.RecruitEntries).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class := "converted"
		dst := &converted
		if strings.Contains(page.Text(s), a.p.ReadMarker) {
			class = "read"
			dst = &read
		}
		if *dst != nil {
			err = &DuplicateCountError{Class: class}
			return false
		}
		raw := page.Text(s.Find(a.p.CountNode).First())
		n, perr := ParseCount(raw)
		if perr != nil {
			err = &FieldError{Field: class + "Count", Value: raw, Err: perr}
			return false
		}
		*dst = &n
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	return read, converted, nil
}

// entityVariant 区分同一实体的两种渲染形式。
type entityVariant int

const (
	variantActive entityVariant = iota
	variantRemoved
)

// entityNode 为按顺序存在性检查解析出的名称节点。
type entityNode struct {
	name    *goquery.Selection
	variant entityVariant
}

// resolveEntity 先查正常名称节点，缺失时回退到“已不存在”节点。
func resolveEntity(item *goquery.Selection, p rules.Preset) (entityNode, bool) {
	if n := item.Find(p.EntityName).First(); n.Length() > 0 {
		return entityNode{name: n, variant: variantActive}, true
	}
	if n := item.Find(p.RemovedName).First(); n.Length() > 0 {
		return entityNode{name: n, variant: variantRemoved}, true
	}
	return entityNode{}, false
}

func (a *assembler) convertedEntities() ([]model.ConvertedEntity, error) {
	sel := rules.ForID(a.p.ConvertedBox, a.id.CampaignID)
	if c := recheck(GateListsPresent, sel); !c.Run(a.doc).Passed {
		return nil, c.fail()
	}
	out := []model.ConvertedEntity{}
	var err error
	a.doc.Find(sel).First().Find(a.p.ConvertedItem).EachWithBreak(func(i int, item *goquery.Selection) bool {
		en, ok := resolveEntity(item, a.p)
		if !ok {
			err = &FieldError{Field: "converted entity name", Value: page.Text(item), Err: errMissingNode}
			return false
		}
		raw := page.Value(item, a.p.Timestamp)
		ts, perr := parseEpoch(raw)
		if perr != nil {
			err = &FieldError{Field: "converted entity timestamp", Value: raw, Err: perr}
			return false
		}
		out = append(out, model.ConvertedEntity{
			ID:          names.Normalize(page.Text(en.name)),
			ConvertedAt: ts,
			IsInactive:  en.variant == variantRemoved,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *assembler) recipients() ([]string, error) {
	sel := rules.ForID(a.p.RecipientBox, a.id.CampaignID)
	if c := recheck(GateListsPresent, sel); !c.Run(a.doc).Passed {
		return nil, c.fail()
	}
	out := []string{}
	a.doc.Find(sel).First().Find(a.p.RecipientLink).Each(func(_ int, s *goquery.Selection) {
		out = append(out, names.Normalize(page.Text(s)))
	})
	return out, nil
}
