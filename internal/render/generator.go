package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrTimeout 表示渲染在调用方给定的超时内未完成。
// 上层据此区分 504 与普通 500。
var ErrTimeout = errors.New("pdf render timed out")

// Generator 抽象 PDF 渲染，便于 handler 测试时注入假实现。
type Generator interface {
	GeneratePDF(ctx context.Context, htmlContent string) ([]byte, error)
	CapturePreview(ctx context.Context, htmlContent string, quality int) ([]byte, error)
}

// RodGenerator 使用 go-rod 驱动无头 Chromium 渲染。
// 每次调用启动独立的浏览器实例，避免长连接状态泄漏。
type RodGenerator struct {
	logger *slog.Logger
}

// NewRodGenerator 构造基于 go-rod 的渲染器。
func NewRodGenerator(logger *slog.Logger) *RodGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodGenerator{logger: logger}
}

// GeneratePDF 渲染 HTML 并导出 A4 PDF 字节。
// ctx 超时会中断渲染并返回包装了 ErrTimeout 的错误。
func (g *RodGenerator) GeneratePDF(ctx context.Context, htmlContent string) ([]byte, error) {
	page, cleanup, err := g.openPage(ctx, htmlContent)
	if err != nil {
		return nil, g.mapErr(ctx, err)
	}
	defer cleanup()

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(8.27),
		PaperHeight:       float64Ptr(11.69),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, g.mapErr(ctx, fmt.Errorf("export pdf: %w", err))
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, g.mapErr(ctx, fmt.Errorf("read pdf bytes: %w", err))
	}
	return data, nil
}

// CapturePreview 渲染 HTML 并截取页面 JPEG 截图，用于列表缩略图。
func (g *RodGenerator) CapturePreview(ctx context.Context, htmlContent string, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	page, cleanup, err := g.openPage(ctx, htmlContent)
	if err != nil {
		return nil, g.mapErr(ctx, err)
	}
	defer cleanup()

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(quality),
	})
	if err != nil {
		return nil, g.mapErr(ctx, fmt.Errorf("capture screenshot: %w", err))
	}
	return data, nil
}

func (g *RodGenerator) openPage(ctx context.Context, htmlContent string) (_ *rod.Page, cleanup func(), err error) {
	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	// cleanup 随已持有的资源逐步增长；中途失败时在这里统一释放，
	// 调用方只需要在成功路径上 defer cleanup()。
	cleanup = func() { launch.Cleanup() }
	defer releaseOnError(&err, &cleanup)

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, cleanup, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Context(ctx)
	if err = browser.Connect(); err != nil {
		return nil, cleanup, fmt.Errorf("connect browser: %w", err)
	}
	cleanup = func() {
		_ = browser.Close()
		launch.Cleanup()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, cleanup, fmt.Errorf("create page: %w", err)
	}
	cleanup = func() {
		_ = page.Close()
		_ = browser.Close()
		launch.Cleanup()
	}

	if err = page.SetDocumentContent(htmlContent); err != nil {
		return nil, cleanup, fmt.Errorf("set document content: %w", err)
	}
	if err = page.WaitLoad(); err != nil {
		return nil, cleanup, fmt.Errorf("wait load: %w", err)
	}
	if err = (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, cleanup, fmt.Errorf("set emulated media: %w", err)
	}

	// 等字体就绪，避免回退字体度量造成排版抖动。
	if _, evalErr := page.Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); evalErr != nil {
		g.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	return page, cleanup, nil
}

// releaseOnError 在会话构建中途失败时释放已持有的资源，
// 并把 cleanup 替换为空操作，防止调用方二次释放。
func releaseOnError(err *error, cleanup *func()) {
	if *err == nil {
		return
	}
	if *cleanup != nil {
		(*cleanup)()
	}
	*cleanup = func() {}
}

// mapErr 把 context 超时折叠为 ErrTimeout，其余错误原样返回。
func (g *RodGenerator) mapErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
