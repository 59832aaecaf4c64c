// 包 reveal 描述三个展开操作的接口边界：
// 核心流程从不触发展开，只在保存时观察结果；这里仅负责确认触发节点存在并委托给外部执行者。
package reveal

import (
	"context"
	"fmt"

	"masstg-export/internal/diag"
	"masstg-export/internal/page"
	"masstg-export/internal/rules"
)

// Action 为展开操作。
type Action int

const (
	Report Action = iota
	Delivered
	Converted
)

// Actions 为用户通常执行的顺序。
var Actions = []Action{Report, Converted, Delivered}

func (a Action) String() string {
	switch a {
	case Report:
		return "Expand Report"
	case Delivered:
		return "Expand Delivered"
	case Converted:
		return "Expand Recruited"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Revealer 为外部执行者，返回区域是否已展开。
type Revealer interface {
	Reveal(ctx context.Context, doc *page.Document, a Action) (bool, error)
}

// trigger 返回操作对应的触发节点选择器与缺失提示。
func trigger(p rules.Preset, id int64, a Action) (string, string) {
	switch a {
	case Report:
		return p.ReportTrigger, "Unable to expand Mass TG report! This only works on mass telegrams sent by your nation."
	case Delivered:
		return rules.ForID(p.DeliveredTrigger, id), "Unable to expand list of recipients! Perhaps you have forgotten to click 'Expand Report'."
	default:
		return rules.ForID(p.ConvertedTrigger, id), "Unable to expand list of converted recipients! Perhaps you have forgotten to click 'Expand Report'."
	}
}

// Target 返回操作展开后应出现的区域选择器。
func Target(p rules.Preset, id int64, a Action) string {
	switch a {
	case Report:
		return p.Summary
	case Delivered:
		return rules.ForID(p.RecipientBox, id)
	default:
		return rules.ForID(p.ConvertedBox, id)
	}
}

// Trigger 确认触发节点存在后委托 Revealer；触发节点缺失时显示提示并返回 false。
func Trigger(ctx context.Context, doc *page.Document, p rules.Preset, id int64, a Action, rv Revealer, slot diag.Slot) (bool, error) {
	sel, msg := trigger(p, id, a)
	if !doc.Exists(sel) {
		slot.Show(msg)
		return false, nil
	}
	ok, err := rv.Reveal(ctx, doc, a)
	if err != nil {
		return false, fmt.Errorf("%s: %w", a, err)
	}
	if ok {
		slot.Clear()
	}
	return ok, nil
}

// Static 用于已保存的页面：只观察目标区域是否已经存在。
type Static struct {
	Preset rules.Preset
	ID     int64
}

func (s Static) Reveal(_ context.Context, doc *page.Document, a Action) (bool, error) {
	return doc.Exists(Target(s.Preset, s.ID, a)), nil
}
