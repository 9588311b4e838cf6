package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/aaofetch/internal/transport"
)

// maxRobotsSize caps how much of robots.txt is read.
const maxRobotsSize = 512 * 1024

// RobotsPolicy decides whether a URL may be requested according to the
// host's robots.txt. Each host's file is fetched once and cached.
//
// A robots.txt that is missing, unreachable or unparsable allows everything.
type RobotsPolicy struct {
	client    *transport.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.Group
}

// NewRobotsPolicy creates a policy that fetches robots.txt through client and
// tests paths against userAgent's group.
func NewRobotsPolicy(client *transport.Client, userAgent string, logger *slog.Logger) *RobotsPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		hosts:     make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether rawURL may be requested. A nil policy allows all.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	if p == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	group := p.group(ctx, u)
	if group == nil {
		return true
	}
	return group.Test(u.RequestURI())
}

// group returns the cached robots group for u's host, fetching it on first use.
// A nil group means no restrictions.
func (p *RobotsPolicy) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.hosts[key]; ok {
		return g
	}

	g := p.fetch(ctx, key+"/robots.txt")
	p.hosts[key] = g
	return g
}

// fetch downloads and parses robots.txt. Any failure yields nil.
func (p *RobotsPolicy) fetch(ctx context.Context, robotsURL string) *robotstxt.Group {
	resp, err := p.client.Get(ctx, robotsURL, nil)
	if err != nil {
		p.logger.Debug("robots.txt unavailable, allowing all", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		p.logger.Debug("failed to read robots.txt, allowing all", "url", robotsURL, "error", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		p.logger.Debug("failed to parse robots.txt, allowing all", "url", robotsURL, "error", err)
		return nil
	}
	p.logger.Debug("robots.txt loaded", "url", robotsURL)
	return data.FindGroup(p.userAgent)
}
