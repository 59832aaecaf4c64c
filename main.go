// 命令行入口：
// - 解析 settings.yaml/rules.yaml 并初始化日志
// - extract：从保存的报告页或 URL 提取群发报告并导出 <campaignId>.json
// - check：检查三个展开操作是否已完成
// - import/summary：归档多份报告并按分类汇总
// - serve：以 HTTP 方式提供提取与下载
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"masstg-export/internal/aggregate"
	"masstg-export/internal/config"
	"masstg-export/internal/diag"
	"masstg-export/internal/export"
	"masstg-export/internal/extract"
	"masstg-export/internal/fetch"
	"masstg-export/internal/logx"
	"masstg-export/internal/page"
	"masstg-export/internal/reveal"
	"masstg-export/internal/rules"
	"masstg-export/internal/store"
)

var (
	configPath string
	rulesPath  string

	filePath     string
	locationFlag string
	urlFlag      string
	outDir       string
	annotatePath string
	saveFlag     bool

	summaryPath string
	addrFlag    string
)

var rootCmd = &cobra.Command{
	Use:           "masstg",
	Short:         "Extract mass telegram delivery reports into portable JSON records",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one report page into <campaignId>.json",
	RunE:  runExtract,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which expand actions a saved page is still missing",
	RunE:  runCheck,
}

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Import a folder of exported reports into the archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write the per-category summary of the archive",
	RunE:  runSummary,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /extract and return the report as a download",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "settings.yaml", "path to settings.yaml")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "rules.yaml", "path to rules.yaml (optional)")

	for _, c := range []*cobra.Command{extractCmd, checkCmd} {
		c.Flags().StringVarP(&filePath, "file", "f", "", "saved report page (html)")
		c.Flags().StringVarP(&locationFlag, "location", "l", "", "address the saved page was opened at")
		c.Flags().StringVarP(&urlFlag, "url", "u", "", "download the report page from this address instead of --file")
	}
	extractCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default OUTPUT_DIR)")
	extractCmd.Flags().StringVar(&annotatePath, "annotate", "", "write the page with the warning inserted to this path")
	extractCmd.Flags().BoolVar(&saveFlag, "save", false, "also store the report in the archive database")
	importCmd.Flags().StringVar(&summaryPath, "summary", "", "write the category summary to this path after importing")
	summaryCmd.Flags().StringVarP(&summaryPath, "out", "o", "summary.json", "summary output path")
	serveCmd.Flags().StringVar(&addrFlag, "addr", "127.0.0.1:8080", "listen address")

	rootCmd.AddCommand(extractCmd, checkCmd, importCmd, summaryCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logx.Errorf("运行失败：%v", err)
		os.Exit(1)
	}
}

// env 为一次命令运行的配置与选择器预设。
type env struct {
	cfg    *config.Config
	preset rules.Preset
}

// loadEnv 加载配置与规则并初始化日志；规则文件缺失时使用内置预设。
func loadEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)
	preset := rules.Default()
	if rulesPath != "" {
		if rl, err := rules.Load(rulesPath); err == nil {
			if p, ok := rl.GetPreset(cfg.Preset); ok {
				preset = p
			} else {
				logx.Warnf("rules.yaml 中没有预设 %q，使用内置预设", cfg.Preset)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			logx.Warnf("加载规则失败：%v", err)
		}
	}
	return &env{cfg: cfg, preset: preset}, nil
}

// loadDocument 从 --url 下载或从 --file 读取报告页。
func loadDocument(ctx context.Context, cfg *config.Config) (*page.Document, error) {
	if urlFlag != "" {
		cl, err := fetch.New(fetch.Options{
			ProxyHTTP:  cfg.Proxy.HTTP,
			ProxyHTTPS: cfg.Proxy.HTTPS,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
			Retry:      cfg.Concurrency.Retry,
			UserAgent:  cfg.Fetch.UserAgent,
			Cookie:     cfg.Fetch.Cookie,
		})
		if err != nil {
			return nil, fmt.Errorf("http client: %w", err)
		}
		return page.Fetch(ctx, cl, urlFlag)
	}
	if filePath == "" {
		return nil, errors.New("either --file or --url is required")
	}
	return page.Open(filePath, locationFlag)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	doc, err := loadDocument(ctx, e.cfg)
	if err != nil {
		return err
	}
	ex, err := extract.New(e.preset)
	if err != nil {
		return err
	}
	slot := diag.Tee{diag.Log{}, diag.Page{Doc: doc, Anchor: ex.Preset().WarningAnchor, Class: ex.Preset().WarningClass}}
	rep, extractErr := ex.Extract(doc, slot)
	if annotatePath != "" {
		if err := writeAnnotated(doc, annotatePath); err != nil {
			logx.Warnf("写入标注页面失败：%v", err)
		}
	}
	if extractErr != nil {
		return extractErr
	}

	art, err := export.NewArtifact(rep)
	if err != nil {
		return err
	}
	dir := outDir
	if dir == "" {
		dir = e.cfg.OutputDir
	}
	path, err := art.WriteFile(dir)
	if err != nil {
		return err
	}
	logx.Infof("已导出 %s（送达=%d 转化实体=%d 收件人=%d）", path, rep.DeliveredCount, len(rep.ConvertedEntities), len(rep.RecipientIDs))

	if saveFlag {
		st, err := store.OpenSQLite(e.cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveReport(ctx, *rep); err != nil {
			return err
		}
		logx.Infof("已归档群发 %d", rep.CampaignID)
	}
	return nil
}

func writeAnnotated(doc *page.Document, path string) error {
	html, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	doc, err := loadDocument(ctx, e.cfg)
	if err != nil {
		return err
	}
	ex, err := extract.New(e.preset)
	if err != nil {
		return err
	}
	id, err := ex.ResolveIdentity(doc)
	if err != nil {
		return err
	}
	missing := 0
	rv := reveal.Static{Preset: ex.Preset(), ID: id.CampaignID}
	for _, a := range reveal.Actions {
		slot := &diag.Memory{}
		ok, err := reveal.Trigger(ctx, doc, ex.Preset(), id.CampaignID, a, rv, slot)
		if err != nil {
			return err
		}
		switch {
		case ok:
			logx.Infof("%s：已展开", a)
		case slot.Current() != "":
			missing++
			logx.Warnf("%s：%s", a, slot.Current())
		default:
			missing++
			logx.Warnf("%s：尚未展开", a)
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d expand action(s) missing for telegram %d", missing, id.CampaignID)
	}
	return nil
}

// openRunner 按极简模式决定是否打开数据库，必要时清理旧数据。
func openRunner(ctx context.Context, cfg *config.Config) (*aggregate.Runner, func(), error) {
	if cfg.SimpleMode {
		logx.Infof("极简模式：跳过数据库打开与清理")
		return aggregate.New(cfg, nil), func() {}, nil
	}
	st, err := store.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ResetOnStart {
		if err := st.Reset(ctx); err != nil {
			logx.Warnf("启动清理数据库失败：%v", err)
		} else {
			logx.Infof("已清理数据库表（reports/converted/recipients）")
		}
	}
	return aggregate.New(cfg, st), func() { st.Close() }, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	run, closeFn, err := openRunner(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	res, err := run.Import(ctx, args[0])
	if err != nil {
		return err
	}
	logx.Infof("导入完成：成功=%d 失败=%d", res.Imported, res.Failed)
	if summaryPath == "" {
		if e.cfg.SimpleMode {
			logx.Warnf("极简模式下未指定 --summary，导入结果不会保留")
		}
		return nil
	}
	return writeSummary(ctx, run, e.cfg, summaryPath)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if e.cfg.SimpleMode {
		return errors.New("summary reads the archive database; it is unavailable with SIMPLE_MODE (use import --summary)")
	}
	ctx := cmd.Context()
	st, err := store.OpenSQLite(e.cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	return writeSummary(ctx, aggregate.New(e.cfg, st), e.cfg, summaryPath)
}

func writeSummary(ctx context.Context, run *aggregate.Runner, cfg *config.Config, path string) error {
	reports, err := run.Reports(ctx)
	if err != nil {
		return err
	}
	cats := aggregate.Summarize(reports, cfg.DefaultCategory)
	if err := export.SummaryToJSON(cats, path); err != nil {
		return err
	}
	logx.Infof("已导出 %s：报告=%d 分类=%d", path, len(reports), len(cats))
	return nil
}
