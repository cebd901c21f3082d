package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL     = "https://playerok.com"
	DefaultThreadsPath = "/chats"
	DefaultLoadTimeout = 30 * time.Second
	DefaultIdleTimeout = 10 * time.Second
)

type Config struct {
	// ControlURL attaches to a running browser; empty launches one.
	ControlURL  string
	Headless    bool
	BaseURL     string
	ThreadsPath string
	Cookies     []domain.Cookie
	Selectors   Selectors
	LoadTimeout time.Duration
	IdleTimeout time.Duration
	Logger      zerolog.Logger
}

type Driver struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
	base     *url.URL
}

var _ ports.Browser = (*Driver)(nil)

func Launch(ctx context.Context, cfg Config) (*Driver, error) {
	cfg = cfg.withDefaults()

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	d := &Driver{cfg: cfg, base: base}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		d.launcher = launcher.New().Headless(cfg.Headless).Context(ctx)
		controlURL, err = d.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	}

	d.browser = rod.New().ControlURL(controlURL)
	if err := d.browser.Connect(); err != nil {
		d.cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	if cookies := cookieParams(cfg.Cookies, base); len(cookies) > 0 {
		if err := d.browser.SetCookies(cookies); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("set session cookies: %w", err)
		}
	}

	cfg.Logger.Info().Str("base_url", cfg.BaseURL).Int("cookies", len(cfg.Cookies)).Msg("browser ready")
	return d, nil
}

func (d *Driver) ListThreads(ctx context.Context, limit int) ([]domain.ThreadSummary, error) {
	linkLoc, err := d.cfg.Selectors.lookup(domain.SelectorThreadLink)
	if err != nil {
		return nil, err
	}
	labelLoc, err := d.cfg.Selectors.lookup(domain.SelectorThreadBuyerLabel)
	if err != nil {
		return nil, err
	}

	page, err := d.open(ctx, d.resolve(d.cfg.ThreadsPath))
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	links, err := page.Context(ctx).Elements(linkLoc.CSS)
	if err != nil {
		return nil, fmt.Errorf("find thread links: %w", err)
	}

	threads := make([]domain.ThreadSummary, 0, min(len(links), limit))
	for _, link := range links {
		if len(threads) >= limit {
			break
		}

		href, err := link.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}
		labels, err := link.Elements(labelLoc.CSS)
		if err != nil || labels.Empty() {
			continue
		}
		buyer, err := labels.First().Text()
		if err != nil {
			continue
		}

		threads = append(threads, domain.ThreadSummary{
			Buyer: domain.BuyerID(strings.TrimSpace(buyer)),
			URL:   d.resolve(*href),
		})
	}

	return threads, nil
}

func (d *Driver) OpenThread(ctx context.Context, threadURL string) (ports.ThreadView, error) {
	page, err := d.open(ctx, threadURL)
	if err != nil {
		return nil, err
	}

	return &threadView{page: page, selectors: d.cfg.Selectors, idleTimeout: d.cfg.IdleTimeout}, nil
}

func (d *Driver) Close() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	d.cleanup()
	return err
}

func (d *Driver) cleanup() {
	if d.launcher != nil {
		d.launcher.Kill()
	}
}

func (d *Driver) open(ctx context.Context, target string) (*rod.Page, error) {
	page, err := d.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", target, err)
	}

	if err := page.Timeout(d.cfg.LoadTimeout).WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("load %s: %w", target, err)
	}

	return page, nil
}

func (d *Driver) resolve(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.base.ResolveReference(parsed).String()
}

type threadView struct {
	page        *rod.Page
	selectors   Selectors
	idleTimeout time.Duration
}

func (v *threadView) Texts(ctx context.Context, selector domain.Selector) ([]string, error) {
	loc, err := v.selectors.lookup(selector)
	if err != nil {
		return nil, err
	}

	elements, err := v.page.Context(ctx).Elements(loc.CSS)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}

	texts := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", selector, err)
		}
		if loc.Text != "" && !strings.Contains(text, loc.Text) {
			continue
		}
		texts = append(texts, text)
	}

	return texts, nil
}

func (v *threadView) Click(ctx context.Context, selector domain.Selector, timeout time.Duration) error {
	loc, err := v.selectors.lookup(selector)
	if err != nil {
		return err
	}

	page := v.page.Context(ctx).Timeout(timeout)
	var el *rod.Element
	if loc.Text != "" {
		el, err = page.ElementR(loc.CSS, regexp.QuoteMeta(loc.Text))
	} else {
		el, err = page.Element(loc.CSS)
	}
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}

	return nil
}

func (v *threadView) WaitIdle(ctx context.Context) error {
	if err := v.page.Context(ctx).WaitIdle(v.idleTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}

func (v *threadView) Close() error {
	return v.page.Close()
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ThreadsPath == "" {
		c.ThreadsPath = DefaultThreadsPath
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	c.Selectors = DefaultSelectors().Merge(c.Selectors)
	return c
}

func cookieParams(cookies []domain.Cookie, base *url.URL) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}

		param := &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
		if param.Domain == "" {
			param.URL = base.String()
		}
		params = append(params, param)
	}
	return params
}
