// 包 diag 提供单槽位的诊断提示：新提示总是替换旧提示，成功后清空，从不累积。
package diag

import (
	"html"
	"sync"

	"masstg-export/internal/logx"
	"masstg-export/internal/page"
)

// Slot 为诊断提示的显示面。
type Slot interface {
	Show(msg string)
	Clear()
}

// Memory 在内存中保存当前提示，并记录 Show 调用次数。
type Memory struct {
	mu    sync.Mutex
	msg   string
	shown int
}

func (m *Memory) Show(msg string) {
	m.mu.Lock()
	m.msg = msg
	m.shown++
	m.mu.Unlock()
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.msg = ""
	m.mu.Unlock()
}

// Current 返回当前提示，空串表示无提示。
func (m *Memory) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msg
}

// Shown 返回累计显示次数。
func (m *Memory) Shown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}

// Log 将提示写入日志（警告级别）。
type Log struct{}

func (Log) Show(msg string) { logx.Warnf("提示：%s", msg) }
func (Log) Clear()          {}

// Page 将提示以 <div class="..."> 的形式插入报告页中锚点节点之后。
type Page struct {
	Doc    *page.Document
	Anchor string
	Class  string
}

func (p Page) Show(msg string) {
	p.Clear()
	anchor := p.Doc.Find(p.Anchor).First()
	if anchor.Length() == 0 {
		logx.Debugf("诊断锚点 %s 不存在，跳过页面标注", p.Anchor)
		return
	}
	anchor.AfterHtml(`<div class="` + html.EscapeString(p.Class) + `" style="background-color: orange; padding: 5px;">` +
		`<p style="font-size: 16px; margin: 5px;">Warning: ` + html.EscapeString(msg) + `</p></div>`)
}

func (p Page) Clear() {
	p.Doc.Find("." + p.Class).Remove()
}

// Tee 将提示同时转发给多个 Slot。
type Tee []Slot

func (t Tee) Show(msg string) {
	for _, s := range t {
		s.Show(msg)
	}
}

func (t Tee) Clear() {
	for _, s := range t {
		s.Clear()
	}
}
