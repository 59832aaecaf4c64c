package extract

import (
	"masstg-export/internal/page"
	"masstg-export/internal/rules"
)

// Gate 为前置检查的名称。
type Gate string

const (
	GateReportExpanded    Gate = "ReportExpanded"
	GateDeliveredExpanded Gate = "DeliveredExpanded"
	GateConvertedExpanded Gate = "ConvertedExpanded"
	GateSummaryPresent    Gate = "SummaryPresent"
	GateListsPresent      Gate = "ListsPresent"
)

// Outcome 为单个检查的结果：通过，或失败并附带补救提示。
type Outcome struct {
	Passed  bool
	Message string
}

// Check 为一个针对文档状态的存在性检查。
type Check struct {
	Gate     Gate
	Selector string
	Message  string
}

// Run 检查选择器是否命中节点。
func (c Check) Run(doc *page.Document) Outcome {
	if doc.Exists(c.Selector) {
		return Outcome{Passed: true}
	}
	return Outcome{Message: c.Message}
}

func (c Check) fail() *GateError { return &GateError{Gate: c.Gate, Message: c.Message} }

// Gates 返回按顺序执行的前置检查链。
func Gates(p rules.Preset, id int64) []Check {
	return []Check{
		{
			Gate:     GateReportExpanded,
			Selector: p.Summary,
			Message:  "Make sure you have clicked 'Expand Report' before trying to save the report!",
		},
		{
			Gate:     GateDeliveredExpanded,
			Selector: rules.ForID(p.RecipientBox, id),
			Message:  "Make sure you have clicked 'Expand Delivered' before trying to save the report!",
		},
		{
			Gate:     GateConvertedExpanded,
			Selector: rules.ForID(p.ConvertedBox, id),
			Message:  "Make sure you have clicked 'Expand Recruited' before trying to save the report!",
		},
	}
}

// recheck 在提取步骤执行前复查节点；展开操作与保存之间页面可能已变化。
func recheck(gate Gate, selector string) Check {
	return Check{Gate: gate, Selector: selector, Message: saveMessage}
}
