package extract_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"masstg-export/internal/diag"
	"masstg-export/internal/extract"
	"masstg-export/internal/model"
	"masstg-export/internal/rules"
)

func newExtractor(t *testing.T, at int64) *extract.Extractor {
	t.Helper()
	ex, err := extract.New(rules.Default())
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return ex.WithClock(func() time.Time { return time.Unix(at, 0) })
}

func TestExtract_FullReport(t *testing.T) {
	slot := &diag.Memory{}
	slot.Show("stale warning")
	r, err := newExtractor(t, 1700001000).Extract(mustParse(t, reportHTML, reportLocation), slot)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if slot.Current() != "" {
		t.Fatalf("warning should be cleared on success, got %q", slot.Current())
	}
	if r.CampaignID != 987 || r.Category != "" {
		t.Fatalf("identity = %d/%q", r.CampaignID, r.Category)
	}
	if r.GeneratedAt != 1700001000 || r.CreatedAt != 1700000000 {
		t.Fatalf("times = generated %d created %d", r.GeneratedAt, r.CreatedAt)
	}
	if r.SenderID != "example_sender" || r.Kind != model.KindAPI {
		t.Fatalf("sender=%q kind=%q", r.SenderID, r.Kind)
	}
	if r.DeliveredCount != 12345 {
		t.Fatalf("delivered = %d", r.DeliveredCount)
	}
	if r.ReadCount == nil || *r.ReadCount != 1024 || r.ConvertedCount == nil || *r.ConvertedCount != 12 {
		t.Fatalf("read/converted = %v/%v", r.ReadCount, r.ConvertedCount)
	}
	wantEntities := []model.ConvertedEntity{
		{ID: "example_nation", ConvertedAt: 1700000100},
		{ID: "gone_nation", ConvertedAt: 1700000200, IsInactive: true},
	}
	if !reflect.DeepEqual(r.ConvertedEntities, wantEntities) {
		t.Fatalf("entities = %+v", r.ConvertedEntities)
	}
	if want := []string{"example_nation", "other_nation"}; !reflect.DeepEqual(r.RecipientIDs, want) {
		t.Fatalf("recipients = %v want %v", r.RecipientIDs, want)
	}
}

func TestExtract_CategoryFromLocation(t *testing.T) {
	loc := "https://www.nationstates.net/tgcategory=wa_recruits/page=tg/tgid=987"
	r, err := newExtractor(t, 1).Extract(mustParse(t, reportHTML, loc), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if r.Category != "wa_recruits" {
		t.Fatalf("category = %q", r.Category)
	}
	b, _ := json.Marshal(r)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if m["category"] != "wa_recruits" {
		t.Fatalf("category not serialized: %s", b)
	}
}

func TestExtract_CategoryAbsentIsOmitted(t *testing.T) {
	r, err := newExtractor(t, 1).Extract(mustParse(t, reportHTML, reportLocation), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	b, _ := json.Marshal(r)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if _, ok := m["category"]; ok {
		t.Fatalf("category should be absent: %s", b)
	}
}

func TestExtract_IdempotentExceptGeneratedAt(t *testing.T) {
	doc := mustParse(t, reportHTML, reportLocation)
	a, err := newExtractor(t, 100).Extract(doc, nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := newExtractor(t, 200).Extract(doc, nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.GeneratedAt == b.GeneratedAt {
		t.Fatalf("generatedAt should follow the clock")
	}
	a.GeneratedAt, b.GeneratedAt = 0, 0
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("records differ:\n%s\n%s", ja, jb)
	}
}

func TestExtract_GateOrderingSingleDiagnostic(t *testing.T) {
	// 汇总与转化列表同时缺失时，只报告第一个检查
	html := withEdit(
		`class="tgreport-ok"`, `class="tgreport-pending"`,
		`id="tgreportexpandbox-987-recruit"`, `id="collapsed-recruit"`,
	)
	slot := &diag.Memory{}
	r, err := newExtractor(t, 1).Extract(mustParse(t, html, reportLocation), slot)
	if r != nil {
		t.Fatalf("no record expected on gate failure")
	}
	var ge *extract.GateError
	if !errors.As(err, &ge) || ge.Gate != extract.GateReportExpanded {
		t.Fatalf("err = %v, want ReportExpanded gate", err)
	}
	if slot.Shown() != 1 || slot.Current() != ge.Message {
		t.Fatalf("diagnostic shown=%d current=%q", slot.Shown(), slot.Current())
	}
}

func TestExtract_GateSequence(t *testing.T) {
	cases := []struct {
		name string
		html string
		gate extract.Gate
	}{
		{"delivered", withEdit(`id="tgreportexpandbox-987-0"`, `id="collapsed-0"`), extract.GateDeliveredExpanded},
		{"converted", withEdit(`id="tgreportexpandbox-987-recruit"`, `id="collapsed-recruit"`), extract.GateConvertedExpanded},
		{"summary entries", withEdit(`class="tgreport-recruit"`, `class="tgreport-other"`), extract.GateSummaryPresent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot := &diag.Memory{}
			slot.Show("previous")
			r, err := newExtractor(t, 1).Extract(mustParse(t, tc.html, reportLocation), slot)
			var ge *extract.GateError
			if r != nil || !errors.As(err, &ge) || ge.Gate != tc.gate {
				t.Fatalf("r=%v err=%v, want gate %s", r, err, tc.gate)
			}
			if slot.Current() == "previous" || slot.Current() == "" {
				t.Fatalf("diagnostic not replaced: %q", slot.Current())
			}
		})
	}
}

func TestExtract_ReentrantAfterRemediation(t *testing.T) {
	ex := newExtractor(t, 1)
	slot := &diag.Memory{}
	collapsed := withEdit(`id="tgreportexpandbox-987-recruit"`, `id="collapsed-recruit"`)
	if _, err := ex.Extract(mustParse(t, collapsed, reportLocation), slot); err == nil {
		t.Fatalf("expected gate failure")
	}
	if _, err := ex.Extract(mustParse(t, reportHTML, reportLocation), slot); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if slot.Current() != "" {
		t.Fatalf("warning not cleared: %q", slot.Current())
	}
}

func TestExtract_DuplicateConvertedEntries(t *testing.T) {
	html := withEdit(`<strong>1,024</strong> Read`, `<strong>1,024</strong> Recruited`)
	slot := &diag.Memory{}
	_, err := newExtractor(t, 1).Extract(mustParse(t, html, reportLocation), slot)
	var de *extract.DuplicateCountError
	if !errors.As(err, &de) || de.Class != "converted" {
		t.Fatalf("err = %v, want duplicate converted", err)
	}
	if slot.Shown() != 1 {
		t.Fatalf("shown = %d", slot.Shown())
	}
}

func TestExtract_OnlyConvertedEntry(t *testing.T) {
	// 送达量较低时页面不显示阅读数
	html := withEdit(`<li class="tgreport-recruit"><i class="icon-eye"></i><span><strong>1,024</strong> Read</span></li>`, ``)
	r, err := newExtractor(t, 1).Extract(mustParse(t, html, reportLocation), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if r.ReadCount != nil || r.ConvertedCount == nil || *r.ConvertedCount != 12 {
		t.Fatalf("read=%v converted=%v", r.ReadCount, r.ConvertedCount)
	}
	b, _ := json.Marshal(r)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if _, ok := m["readCount"]; ok {
		t.Fatalf("readCount should be omitted: %s", b)
	}
}

func TestExtract_MissingTimestampIsFieldError(t *testing.T) {
	html := withEdit(`<time data-epoch="1700000200">`, `<time>`)
	slot := &diag.Memory{}
	_, err := newExtractor(t, 1).Extract(mustParse(t, html, reportLocation), slot)
	var fe *extract.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FieldError", err)
	}
	if slot.Current() == "" {
		t.Fatalf("field error should surface a diagnostic")
	}
}

func TestExtract_VariantEquivalence(t *testing.T) {
	active := withEdit(`<span class="nnameblock">Gone Nation</span>`, `<span class="nname">Gone Nation</span>`)
	ra, err := newExtractor(t, 1).Extract(mustParse(t, active, reportLocation), nil)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	rr, err := newExtractor(t, 1).Extract(mustParse(t, reportHTML, reportLocation), nil)
	if err != nil {
		t.Fatalf("removed: %v", err)
	}
	a, r := ra.ConvertedEntities[1], rr.ConvertedEntities[1]
	if a.ID != r.ID || a.ConvertedAt != r.ConvertedAt || a.IsInactive || !r.IsInactive {
		t.Fatalf("active=%+v removed=%+v", a, r)
	}
}

func TestExtract_IdentityFailureHasNoDiagnostic(t *testing.T) {
	html := withEdit(`<div id="tgmodelinks">`, `<div id="other-links">`)
	slot := &diag.Memory{}
	_, err := newExtractor(t, 1).Extract(mustParse(t, html, reportLocation), slot)
	var ie *extract.IdentityError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IdentityError", err)
	}
	if slot.Shown() != 0 {
		t.Fatalf("identity failure must not show a diagnostic")
	}
}

func TestExtract_LargeRecipientListIsComplete(t *testing.T) {
	const n = 160000
	var links strings.Builder
	for i := 0; i < n; i++ {
		links.WriteString(`<a href="nation=recipient_nation">Recipient Nation</a>, `)
	}
	nav := `<div id="tgmodelinks"><a href="/page=tg/tgid=987/conversation=1">Conversation</a> <a href="/page=tg/tgid=987/raw=1">Raw</a></div>`
	html := withEdit(
		nav, "",
		`<div class="tgprefbar">`, nav+`<div class="tgprefbar">`,
		`<a href="nation=example_nation">Example Nation</a>, <a href="nation=other_nation">OTHER NATION</a>`, links.String(),
	)
	if len(html) < 8<<20 {
		t.Fatalf("fixture too small: %d bytes", len(html))
	}
	r, err := newExtractor(t, 1).Extract(mustParse(t, html, reportLocation), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(r.RecipientIDs) != n || r.RecipientIDs[n-1] != "recipient_nation" {
		t.Fatalf("recipients = %d, want %d", len(r.RecipientIDs), n)
	}
}

func TestExtract_CreatedAtFromFirstSentLine(t *testing.T) {
	sent := `<a class="tgsentline" href="page=tg/tgid=987"><time data-epoch="1700000000">Sent 2 days ago</time></a>`
	later := `<a class="tgsentline" href="page=tg/tgid=987"><time data-epoch="1600000000">Earlier</time></a>`

	r, err := newExtractor(t, 1).Extract(mustParse(t, withEdit(sent, sent+later), reportLocation), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if r.CreatedAt != 1700000000 {
		t.Fatalf("createdAt = %d, want the first sent line", r.CreatedAt)
	}

	// 首个发送行没有子节点时不能退而读取后面的发送行
	empty := `<a class="tgsentline" href="page=tg/tgid=987">Sent</a>`
	slot := &diag.Memory{}
	_, err = newExtractor(t, 1).Extract(mustParse(t, withEdit(sent, empty+later), reportLocation), slot)
	var fe *extract.FieldError
	if !errors.As(err, &fe) || fe.Field != "createdAt" {
		t.Fatalf("err = %v, want createdAt FieldError", err)
	}
	if slot.Current() == "" {
		t.Fatalf("expect a diagnostic")
	}
}
