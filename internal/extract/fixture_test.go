package extract_test

import (
	"strings"
	"testing"

	"masstg-export/internal/page"
)

const reportLocation = "https://www.nationstates.net/page=tg/tgid=987"

// reportHTML 为三个展开操作均已完成的报告页。
const reportHTML = `<!doctype html><html><body>
<div id="banner"></div>
<div class="tgprefbar">Preferences</div>
<div class="tg_headers">From: <a href="nation=example_sender"><span class="nname">Example Sender</span></a>
  To: mass telegram (tag: api)</div>
<a class="tgsentline" href="page=tg/tgid=987"><time data-epoch="1700000000">Sent 2 days ago</time></a>
<div class="masstgreport">Mass Telegram Report</div>
<ul class="tgreport">
  <li class="tgreport-ok"><i class="icon-ok"></i><span>Delivered to <strong>12,345</strong> nations.</span>
    <a id="tgreportexpand-987-0" href="#">Show</a></li>
  <li class="tgreport-recruit"><i class="icon-eye"></i><span><strong>1,024</strong> Read</span></li>
  <li class="tgreport-recruit"><i class="icon-flag"></i><span><strong>12</strong> Recruited</span>
    <a id="tgreportexpand-987-recruit" href="#">Show</a></li>
</ul>
<div id="tgreportexpandbox-987-recruit"><ul>
  <li><a href="nation=example_nation"><span class="nname">Example   Nation</span></a> <time data-epoch="1700000100">1 day ago</time></li>
  <li><span class="nnameblock">Gone Nation</span> <time data-epoch="1700000200">1 day ago</time></li>
</ul></div>
<div id="tgreportexpandbox-987-0">
  <a href="nation=example_nation">Example Nation</a>, <a href="nation=other_nation">OTHER NATION</a>
</div>
<div id="tgmodelinks"><a href="/page=tg/tgid=987/conversation=1">Conversation</a> <a href="/page=tg/tgid=987/raw=1">Raw</a></div>
</body></html>`

// withEdit 对报告页做字符串替换，用于构造缺失/变体场景。
func withEdit(pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(reportHTML)
}

func mustParse(t *testing.T, html, location string) *page.Document {
	t.Helper()
	doc, err := page.Parse(strings.NewReader(html), location)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}
