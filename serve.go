package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"masstg-export/internal/diag"
	"masstg-export/internal/export"
	"masstg-export/internal/extract"
	"masstg-export/internal/logx"
	"masstg-export/internal/page"
)

// extractHandler 处理 POST /extract?location=...，请求体为报告页 HTML。
// 每个请求使用独立的文档与诊断槽位，互不共享状态；请求体超过 maxBody 时返回 413。
func extractHandler(ex *extract.Extractor, maxBody int64) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/extract", func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		w.Header().Set("X-Request-Id", reqID)
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		body := http.MaxBytesReader(w, r.Body, maxBody)
		doc, err := page.ParseLimit(body, r.URL.Query().Get("location"), maxBody)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.Is(err, page.ErrPageTooLarge) || errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slot := &diag.Memory{}
		rep, err := ex.Extract(doc, slot)
		if err != nil {
			logx.Warnf("[%s] 提取失败：%v", reqID, err)
			var ge *extract.GateError
			var ie *extract.IdentityError
			switch {
			case errors.As(err, &ge):
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"gate": string(ge.Gate), "warning": slot.Current()})
			case errors.As(err, &ie):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": ie.Error()})
			case slot.Current() != "":
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"warning": slot.Current()})
			default:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
			return
		}
		art, err := export.NewArtifact(rep)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		logx.Infof("[%s] 已生成 %s", reqID, art.Name)
		art.ServeHTTP(w, r)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ex, err := extract.New(e.preset)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addrFlag,
		Handler:           extractHandler(ex, page.MaxPageBytes),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logx.Infof("监听 %s", addrFlag)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logx.Infof("正在关闭服务")
	return srv.Shutdown(shutdownCtx)
}
