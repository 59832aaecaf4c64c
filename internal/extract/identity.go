package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"masstg-export/internal/page"
	"masstg-export/internal/rules"
)

// Identity 为不依赖展开状态即可确定的报告身份。
type Identity struct {
	CampaignID int64
	Category   string
}

// IdentityResolver 从导航链接解析群发 ID，从页面地址解析可选分类。
type IdentityResolver struct {
	navLinks string
	idRe     *regexp.Regexp
	catRe    *regexp.Regexp
}

// NewIdentityResolver 编译预设中的链接/地址模式，两者都必须恰好含一个捕获组。
func NewIdentityResolver(p rules.Preset) (*IdentityResolver, error) {
	idRe, err := regexp.Compile(p.IDPattern)
	if err != nil {
		return nil, fmt.Errorf("compile id pattern: %w", err)
	}
	if idRe.NumSubexp() != 1 {
		return nil, fmt.Errorf("id pattern must have exactly one capture group, has %d", idRe.NumSubexp())
	}
	catRe, err := regexp.Compile(p.CategoryPattern)
	if err != nil {
		return nil, fmt.Errorf("compile category pattern: %w", err)
	}
	if catRe.NumSubexp() != 1 {
		return nil, fmt.Errorf("category pattern must have exactly one capture group, has %d", catRe.NumSubexp())
	}
	return &IdentityResolver{navLinks: p.NavLinks, idRe: idRe, catRe: catRe}, nil
}

// Resolve 为纯函数：只读 doc 与 doc.Location。
func (ir *IdentityResolver) Resolve(doc *page.Document) (Identity, error) {
	href := doc.Value(ir.navLinks)
	if href == "" {
		return Identity{}, &IdentityError{Reason: "no navigation link found"}
	}
	link := doc.Resolve(href)
	m := ir.idRe.FindStringSubmatch(link)
	if m == nil {
		return Identity{}, &IdentityError{Link: link, Reason: "link does not carry a telegram id"}
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id < 0 {
		return Identity{}, &IdentityError{Link: link, Reason: "telegram id is not a non-negative integer", Err: err}
	}
	out := Identity{CampaignID: id}
	if cm := ir.catRe.FindStringSubmatch(doc.Location); cm != nil {
		out.Category = cm[1]
	}
	return out, nil
}
