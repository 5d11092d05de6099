package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/metrics"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

const (
	// DefaultMarker tags every hosts line this manager owns.
	DefaultMarker = "ParentGuard"

	redirectAddr = "127.0.0.1"
)

// BlockList reconciles the managed section of the hosts file with a
// desired site list. Lines it does not own are preserved verbatim and
// moved ahead of the managed section.
type BlockList struct {
	file     domain.BlockFile
	resolver domain.ResolverCache
	marker   string
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu sync.Mutex // serialises read-modify-write of the file
}

// NewBlockList creates a manager. An empty marker uses DefaultMarker.
func NewBlockList(file domain.BlockFile, resolver domain.ResolverCache, marker string, m *metrics.Metrics, logger *zap.Logger) *BlockList {
	if marker == "" {
		marker = DefaultMarker
	}
	return &BlockList{
		file:     file,
		resolver: resolver,
		marker:   marker,
		metrics:  m,
		logger:   logger,
	}
}

// Apply rewrites the managed section to block exactly sites.
func (b *BlockList) Apply(ctx context.Context, sites []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(ctx, sites)
}

// TryApply is Apply without waiting: it returns domain.ErrLockContention
// when another reconciliation is in progress.
func (b *BlockList) TryApply(ctx context.Context, sites []string) error {
	if !b.mu.TryLock() {
		return domain.ErrLockContention
	}
	defer b.mu.Unlock()
	return b.applyLocked(ctx, sites)
}

func (b *BlockList) applyLocked(ctx context.Context, sites []string) error {
	current, err := b.read(ctx)
	if err != nil {
		return err
	}
	return b.write(ctx, current, RenderBlockList(current, sites, b.marker))
}

// Remove deletes every managed line and leaves the rest untouched.
func (b *BlockList) Remove(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.read(ctx)
	if err != nil {
		return err
	}
	return b.write(ctx, current, StripBlockList(current, b.marker))
}

// Block adds one site to the managed section, keeping the others.
func (b *BlockList) Block(ctx context.Context, site string) error {
	return b.edit(ctx, site, func(sites []string, s string) []string {
		if slices.Contains(sites, s) {
			return sites
		}
		return append(sites, s)
	})
}

// Unblock removes one site (bare and www.) from the managed section.
func (b *BlockList) Unblock(ctx context.Context, site string) error {
	return b.edit(ctx, site, func(sites []string, s string) []string {
		return slices.DeleteFunc(sites, func(x string) bool { return x == s })
	})
}

func (b *BlockList) edit(ctx context.Context, site string, change func([]string, string) []string) error {
	s := policy.NormalizeSite(site)
	if s == "" {
		return fmt.Errorf("%w: domain %q", domain.ErrInvalidInput, site)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.read(ctx)
	if err != nil {
		return err
	}
	sites := change(ManagedSites(current, b.marker), s)
	return b.write(ctx, current, RenderBlockList(current, sites, b.marker))
}

// Sites returns the sites currently blocked by the managed section.
func (b *BlockList) Sites(ctx context.Context) ([]string, error) {
	current, err := b.read(ctx)
	if err != nil {
		return nil, err
	}
	return ManagedSites(current, b.marker), nil
}

func (b *BlockList) read(ctx context.Context) (string, error) {
	content, err := b.file.ReadBlockFile(ctx)
	if err != nil {
		return "", domain.NewOpError(domain.ErrFileAccess, "read "+b.file.Path(), err)
	}
	return content, nil
}

// write replaces the file when next differs and then flushes the resolver.
// An identical rendering is not rewritten, which keeps per-cycle
// reconciliation cheap and stops file watchers from re-triggering.
func (b *BlockList) write(ctx context.Context, current, next string) error {
	if next == current {
		return nil
	}
	if err := b.file.WriteBlockFile(ctx, next); err != nil {
		b.metrics.ActionFailed("blocklist")
		return domain.NewOpError(domain.ErrFileAccess, "write "+b.file.Path(), err)
	}
	b.metrics.BlockListWritten()
	b.logger.Info("block list updated", zap.String("path", b.file.Path()))

	if err := b.resolver.FlushResolverCache(ctx); err != nil {
		b.logger.Debug("resolver flush failed", zap.Error(err))
	}
	return nil
}

func markerTag(marker string) string {
	return "# " + marker
}

// splitLines normalises CRLF and drops the final newline.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func unownedLines(content, marker string) []string {
	tag := markerTag(marker)
	var kept []string
	for _, line := range splitLines(content) {
		if !strings.Contains(line, tag) {
			kept = append(kept, line)
		}
	}
	return kept
}

// RenderBlockList returns content with its managed section replaced by
// redirects for sites (bare and www. form each).
func RenderBlockList(content string, sites []string, marker string) string {
	tag := markerTag(marker)
	lines := unownedLines(content, marker)
	lines = append(lines, tag+" - managed block, do not edit")
	for _, site := range policy.NormalizeSites(sites) {
		lines = append(lines,
			redirectAddr+" "+site+" "+tag,
			redirectAddr+" www."+site+" "+tag,
		)
	}
	return strings.Join(lines, "\n") + "\n"
}

// StripBlockList returns content without any managed line.
func StripBlockList(content, marker string) string {
	lines := unownedLines(content, marker)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// ManagedSites lists the bare sites present in the managed section, in
// file order. A site counts when both its bare and www. lines exist.
func ManagedSites(content, marker string) []string {
	tag := markerTag(marker)
	var hosts []string
	for _, line := range splitLines(content) {
		if !strings.Contains(line, tag) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != redirectAddr {
			continue
		}
		hosts = append(hosts, fields[1])
	}

	var sites []string
	for _, h := range hosts {
		if slices.Contains(hosts, "www."+h) && !slices.Contains(sites, h) {
			sites = append(sites, h)
		}
	}
	return sites
}
