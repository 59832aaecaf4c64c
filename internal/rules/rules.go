// 包 rules 负责加载并提供报告页的选择器预设（rules.yaml），
// 以预设名（如 default）组织各节点角色的 CSS 选择器；页面改版时只需调整 YAML。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TgIDPlaceholder 在容器/触发器选择器中代表当前群发 ID。
const TgIDPlaceholder = "{tgid}"

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个页面版本的选择器集合。
// 取值表达式语法见 page.Value："sel"、"sel@attr"、"a||b"。
type Preset struct {
	// 身份解析
	NavLinks        string `yaml:"nav_links"`
	IDPattern       string `yaml:"id_pattern"`
	CategoryPattern string `yaml:"category_pattern"`

	// 头部信息
	Header         string `yaml:"header"`
	Sender         string `yaml:"sender"`
	SentLine       string `yaml:"sent_line"`
	CreatedAt      string `yaml:"created_at"` // 相对首个 SentLine 的首个子节点
	APIMarker      string `yaml:"api_marker"`
	TemplateMarker string `yaml:"template_marker"`

	// 汇总条目
	Summary           string `yaml:"summary"`
	SummaryCountChild int    `yaml:"summary_count_child"`
	CountNode         string `yaml:"count_node"`
	RecruitEntries    string `yaml:"recruit_entries"`
	ReadMarker        string `yaml:"read_marker"`

	// 展开后的列表
	ConvertedBox  string `yaml:"converted_box"`
	ConvertedItem string `yaml:"converted_item"`
	EntityName    string `yaml:"entity_name"`
	RemovedName   string `yaml:"removed_name"`
	Timestamp     string `yaml:"timestamp"`
	RecipientBox  string `yaml:"recipient_box"`
	RecipientLink string `yaml:"recipient_link"`

	// 展开按钮与警告位置
	ReportTrigger    string `yaml:"report_trigger"`
	DeliveredTrigger string `yaml:"delivered_trigger"`
	ConvertedTrigger string `yaml:"converted_trigger"`
	WarningAnchor    string `yaml:"warning_anchor"`
	WarningClass     string `yaml:"warning_class"`
}

// Default 返回与当前报告页结构一致的内置预设。
func Default() Preset {
	return Preset{
		NavLinks:        "#tgmodelinks > *@href",
		IDPattern:       `^https?://(?:fast|www)\.nationstates\.net/.*page=tg/tgid=([0-9]+)`,
		CategoryPattern: `^https?://(?:fast|www)\.nationstates\.net/tgcategory=(.+)/page=tg/tgid=(?:[0-9]+)`,

		Header:         ".tg_headers",
		Sender:         ".tg_headers span.nname",
		SentLine:       "a.tgsentline",
		CreatedAt:      "@data-epoch",
		APIMarker:      "tag: api",
		TemplateMarker: "tag: template",

		Summary:           "li.tgreport-ok",
		SummaryCountChild: 1,
		CountNode:         "strong",
		RecruitEntries:    "li.tgreport-recruit",
		ReadMarker:        "Read",

		ConvertedBox:  "#tgreportexpandbox-{tgid}-recruit",
		ConvertedItem: "li",
		EntityName:    "span.nname",
		RemovedName:   "span.nnameblock",
		Timestamp:     "time@data-epoch",
		RecipientBox:  "#tgreportexpandbox-{tgid}-0",
		RecipientLink: "a",

		ReportTrigger:    ".masstgreport",
		DeliveredTrigger: "#tgreportexpand-{tgid}-0",
		ConvertedTrigger: "#tgreportexpand-{tgid}-recruit",
		WarningAnchor:    ".tgprefbar",
		WarningClass:     "masstg-warning",
	}
}

// WithDefaults 用内置预设补齐未配置的字段。
func (p Preset) WithDefaults() Preset {
	d := Default()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&p.NavLinks, d.NavLinks)
	fill(&p.IDPattern, d.IDPattern)
	fill(&p.CategoryPattern, d.CategoryPattern)
	fill(&p.Header, d.Header)
	fill(&p.Sender, d.Sender)
	fill(&p.SentLine, d.SentLine)
	fill(&p.CreatedAt, d.CreatedAt)
	fill(&p.APIMarker, d.APIMarker)
	fill(&p.TemplateMarker, d.TemplateMarker)
	fill(&p.Summary, d.Summary)
	fill(&p.CountNode, d.CountNode)
	fill(&p.RecruitEntries, d.RecruitEntries)
	fill(&p.ReadMarker, d.ReadMarker)
	fill(&p.ConvertedBox, d.ConvertedBox)
	fill(&p.ConvertedItem, d.ConvertedItem)
	fill(&p.EntityName, d.EntityName)
	fill(&p.RemovedName, d.RemovedName)
	fill(&p.Timestamp, d.Timestamp)
	fill(&p.RecipientBox, d.RecipientBox)
	fill(&p.RecipientLink, d.RecipientLink)
	fill(&p.ReportTrigger, d.ReportTrigger)
	fill(&p.DeliveredTrigger, d.DeliveredTrigger)
	fill(&p.ConvertedTrigger, d.ConvertedTrigger)
	fill(&p.WarningAnchor, d.WarningAnchor)
	fill(&p.WarningClass, d.WarningClass)
	if p.SummaryCountChild <= 0 {
		p.SummaryCountChild = d.SummaryCountChild
	}
	return p
}

// ForID 将选择器模板中的 {tgid} 替换为具体 ID。
func ForID(tmpl string, id int64) string {
	return strings.ReplaceAll(tmpl, TgIDPlaceholder, fmt.Sprint(id))
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"，
// 再不存在则使用内置预设；返回值的空字段已用内置预设补齐。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Default(), false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p.WithDefaults(), true
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v.WithDefaults(), true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p.WithDefaults(), true
	}
	return Default(), false
}
