package reveal_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"masstg-export/internal/diag"
	"masstg-export/internal/page"
	"masstg-export/internal/reveal"
	"masstg-export/internal/rules"
)

type failing struct{}

func (failing) Reveal(context.Context, *page.Document, reveal.Action) (bool, error) {
	return false, errors.New("click failed")
}

func parse(t *testing.T, body string) *page.Document {
	t.Helper()
	doc, err := page.Parse(strings.NewReader(body), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestTrigger_MissingTrigger(t *testing.T) {
	doc := parse(t, `<div class="tg_headers"></div>`)
	p := rules.Default()
	slot := &diag.Memory{}
	ok, err := reveal.Trigger(context.Background(), doc, p, 7, reveal.Delivered, reveal.Static{Preset: p, ID: 7}, slot)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !strings.Contains(slot.Current(), "Expand Report") {
		t.Fatalf("unexpected warning: %q", slot.Current())
	}
}

func TestTrigger_Static(t *testing.T) {
	p := rules.Default()
	doc := parse(t, `<div class="masstgreport"></div><ul><li class="tgreport-ok">x</li></ul>
<a id="tgreportexpand-7-0"></a><a id="tgreportexpand-7-recruit"></a>
<div id="tgreportexpandbox-7-0"><a>n</a></div>`)
	rv := reveal.Static{Preset: p, ID: 7}
	cases := map[reveal.Action]bool{
		reveal.Report:    true,
		reveal.Delivered: true,
		reveal.Converted: false,
	}
	for a, want := range cases {
		slot := &diag.Memory{}
		slot.Show("stale")
		ok, err := reveal.Trigger(context.Background(), doc, p, 7, a, rv, slot)
		if err != nil {
			t.Fatalf("%s: %v", a, err)
		}
		if ok != want {
			t.Fatalf("%s: ok=%v want=%v", a, ok, want)
		}
		if want && slot.Current() != "" {
			t.Fatalf("%s: warning should be cleared", a)
		}
	}
}

func TestTrigger_RevealerError(t *testing.T) {
	doc := parse(t, `<div class="masstgreport"></div>`)
	_, err := reveal.Trigger(context.Background(), doc, rules.Default(), 1, reveal.Report, failing{}, &diag.Memory{})
	if err == nil || !strings.Contains(err.Error(), "Expand Report") {
		t.Fatalf("err = %v", err)
	}
}
