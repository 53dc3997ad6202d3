package tool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"relay/internal/config"
)

// BrowserTool provides read-only browser automation via rod: open a page,
// extract its text, capture a screenshot. The browser is launched lazily on
// first use and a single page is kept open at a time.
type BrowserTool struct {
	cfg     config.BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
}

// NewBrowserTool creates a new browser tool.
func NewBrowserTool(cfg config.BrowserConfig) *BrowserTool {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 30
	}
	if cfg.MaxPageSizeKB <= 0 {
		cfg.MaxPageSizeKB = 2048
	}
	return &BrowserTool{cfg: cfg}
}

func (t *BrowserTool) Name() string { return "browser" }
func (t *BrowserTool) Description() string {
	return "Fetch web pages with a real browser. Actions: navigate (open URL), get_content (page text), screenshot (capture page), close (close the page)."
}

func (t *BrowserTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["navigate", "get_content", "screenshot", "close"],
				"description": "The browser action to perform"
			},
			"url": {
				"type": "string",
				"description": "URL to navigate to (for navigate action)"
			}
		},
		"required": ["action"]
	}`)
}

type browserParams struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

func (t *BrowserTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params browserParams
	if err := json.Unmarshal(args, &params); err != nil {
		return &Result{Error: "invalid arguments: " + err.Error(), IsError: true}, nil
	}

	timeout := time.Duration(t.cfg.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch params.Action {
	case "navigate":
		return t.navigate(ctx, params.URL)
	case "get_content":
		return t.getContent(ctx)
	case "screenshot":
		return t.screenshot()
	case "close":
		return t.closePage()
	default:
		return &Result{Error: fmt.Sprintf("unknown action: %s", params.Action), IsError: true}, nil
	}
}

// Close tears the whole browser down. Called on runtime shutdown.
func (t *BrowserTool) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.browser != nil {
		_ = t.browser.Close()
		t.browser = nil
		t.page = nil
	}
}

func (t *BrowserTool) navigate(ctx context.Context, rawURL string) (*Result, error) {
	if err := t.validateURL(rawURL); err != nil {
		return &Result{Error: err.Error(), IsError: true}, nil
	}
	if err := t.ensureBrowser(); err != nil {
		return &Result{Error: err.Error(), IsError: true}, nil
	}

	if t.page == nil {
		page, err := t.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return &Result{Error: "failed to open page: " + err.Error(), IsError: true}, nil
		}
		t.page = page
	}

	page := t.page.Context(ctx)
	if err := page.Navigate(rawURL); err != nil {
		return &Result{Error: "navigation failed: " + err.Error(), IsError: true}, nil
	}
	if err := page.WaitLoad(); err != nil {
		return &Result{Error: "page load failed: " + err.Error(), IsError: true}, nil
	}

	info, err := page.Info()
	title := ""
	if err == nil {
		title = info.Title
	}
	return &Result{Output: fmt.Sprintf("Opened %s (title: %s)", rawURL, title)}, nil
}

func (t *BrowserTool) getContent(ctx context.Context) (*Result, error) {
	if t.page == nil {
		return &Result{Error: "no page open, navigate first", IsError: true}, nil
	}

	page := t.page.Context(ctx)
	el, err := page.Element("body")
	if err != nil {
		return &Result{Error: "failed to read page: " + err.Error(), IsError: true}, nil
	}
	text, err := el.Text()
	if err != nil {
		return &Result{Error: "failed to extract text: " + err.Error(), IsError: true}, nil
	}

	maxBytes := t.cfg.MaxPageSizeKB * 1024
	if len(text) > maxBytes {
		text = text[:maxBytes] + "\n... (page truncated)"
	}
	return &Result{Output: text}, nil
}

func (t *BrowserTool) screenshot() (*Result, error) {
	if t.page == nil {
		return &Result{Error: "no page open, navigate first", IsError: true}, nil
	}

	data, err := t.page.Screenshot(false, nil)
	if err != nil {
		return &Result{Error: "screenshot failed: " + err.Error(), IsError: true}, nil
	}
	return &Result{Output: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)}, nil
}

func (t *BrowserTool) closePage() (*Result, error) {
	if t.page == nil {
		return &Result{Output: "no page open"}, nil
	}
	_ = t.page.Close()
	t.page = nil
	return &Result{Output: "page closed"}, nil
}

func (t *BrowserTool) ensureBrowser() error {
	if t.browser != nil {
		return nil
	}

	l := launcher.New().Headless(t.cfg.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	t.browser = browser
	return nil
}

// validateURL checks the URL scheme and blocks private addresses (SSRF).
func (t *BrowserTool) validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("only http/https schemes are allowed, got: %s", u.Scheme)
	}

	if isPrivateHost(u.Hostname()) {
		return fmt.Errorf("access to private/loopback addresses is denied: %s", u.Hostname())
	}
	return nil
}

// isPrivateHost returns true for loopback, private, and link-local addresses.
func isPrivateHost(host string) bool {
	lower := strings.ToLower(host)
	if lower == "localhost" || lower == "ip6-localhost" || lower == "ip6-loopback" {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Not an IP literal; hostname resolution is left to the browser.
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
