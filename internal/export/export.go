// 包 export 负责将报告写成可下载的 JSON 制品：<campaignId>.json，两空格缩进。
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"masstg-export/internal/model"
)

// MIME 使用 octet-stream，浏览器会保存而不是内联显示。
const MIME = "application/octet-stream"

// Artifact 为一次导出的完整字节内容。
type Artifact struct {
	Name string
	MIME string
	Body []byte
}

// NewArtifact 序列化报告。
func NewArtifact(r *model.CampaignReport) (*Artifact, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report %d: %w", r.CampaignID, err)
	}
	return &Artifact{
		Name: strconv.FormatInt(r.CampaignID, 10) + ".json",
		MIME: MIME,
		Body: buf.Bytes(),
	}, nil
}

// WriteFile 写入 dir/<campaignId>.json，返回完整路径。
func (a *Artifact) WriteFile(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ServeHTTP 以附件形式发送制品。
func (a *Artifact) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", a.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Body)
}
