// 包 page 封装报告页的文档树：
// - 基于 goquery 加载 HTML，并记录页面地址（Location）用于补全相对链接
// - 提供与 rules.yaml 共用的取值语法："选择器@属性" 以及 "||" 多方案回退
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"masstg-export/internal/fetch"
)

// MaxPageBytes 为单个报告页读取上限；超出时返回 ErrPageTooLarge，不解析截断后的内容。
const MaxPageBytes = 64 << 20

// ErrPageTooLarge 表示报告页超过读取上限。
var ErrPageTooLarge = errors.New("report page too large")

// Document 为一次提取所观察的报告页快照。
type Document struct {
	Location string
	doc      *goquery.Document
}

// Parse 从 reader 解析 HTML，location 为页面所在地址（可为空）。
func Parse(r io.Reader, location string) (*Document, error) {
	return ParseLimit(r, location, MaxPageBytes)
}

// ParseLimit 与 Parse 相同，但使用指定的读取上限。
func ParseLimit(r io.Reader, location string, limit int64) (*Document, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read report page: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPageTooLarge, limit)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse report page html: %w", err)
	}
	return &Document{Location: strings.TrimSpace(location), doc: doc}, nil
}

// Open 读取本地保存的报告页。
func Open(path, location string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report page %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, location)
}

// Fetch 下载报告页，最终跳转后的地址作为 Location。
func Fetch(ctx context.Context, cl *fetch.Client, pageURL string) (*Document, error) {
	resp, err := cl.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("GET report page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	loc := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		loc = resp.Request.URL.String()
	}
	return Parse(resp.Body, loc)
}

// Find 在整个文档中查找。
func (d *Document) Find(sel string) *goquery.Selection { return d.doc.Find(sel) }

// Exists 判断选择器是否至少命中一个节点。
func (d *Document) Exists(sel string) bool { return d.doc.Find(sel).Length() > 0 }

// Value 在整个文档范围内按表达式取值。
func (d *Document) Value(expr string) string { return Value(d.doc.Selection, expr) }

// HTML 序列化当前文档。
func (d *Document) HTML() (string, error) { return d.doc.Html() }

// Resolve 将链接补全为绝对 URL（与浏览器 a.href 一致）。
func (d *Document) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	bu, err := url.Parse(d.Location)
	if err != nil || d.Location == "" {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}

// Text 返回节点的可见文本：空白折叠为单个空格并去除首尾空白。
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Value 解析表达式并支持使用 "||" 作为回退分隔，例如："a@href||@href" 或 ".name||."。
func Value(scope *goquery.Selection, expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	for _, p := range strings.Split(expr, "||") {
		if v := valueSingle(scope, strings.TrimSpace(p)); v != "" {
			return v
		}
	}
	return ""
}

// valueSingle 解析单个表达式：文本或属性读取，均取第一个命中节点。
func valueSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return Text(scope)
	}
	if at := strings.LastIndex(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		el := scope
		if sel != "" {
			el = scope.Find(sel).First()
		}
		val, _ := el.Attr(attr)
		return strings.TrimSpace(val)
	}
	return Text(scope.Find(expr).First())
}
