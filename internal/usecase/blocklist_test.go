package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

const baseHosts = "127.0.0.1 localhost\n::1 localhost\n# custom entry\n10.0.0.5 nas.lan\n"

func newTestBlockList(hosts string) (*BlockList, *mockPlatform) {
	p := &mockPlatform{hosts: hosts}
	return NewBlockList(p, p, "", nil, zap.NewNop()), p
}

func countLines(content, line string) int {
	n := 0
	for _, l := range strings.Split(content, "\n") {
		if l == line {
			n++
		}
	}
	return n
}

func TestBlockList_BlockExampleCom(t *testing.T) {
	bl, p := newTestBlockList(baseHosts)
	ctx := context.Background()

	require.NoError(t, bl.Block(ctx, "example.com"))
	assert.Equal(t, 1, countLines(p.hosts, "127.0.0.1 example.com # ParentGuard"))
	assert.Equal(t, 1, countLines(p.hosts, "127.0.0.1 www.example.com # ParentGuard"))
	assert.True(t, strings.HasPrefix(p.hosts, baseHosts), "unowned lines are preserved in order")

	require.NoError(t, bl.Unblock(ctx, "example.com"))
	assert.NotContains(t, p.hosts, "example.com")
	assert.True(t, strings.HasPrefix(p.hosts, baseHosts))
}

func TestBlockList_ApplyIsIdempotent(t *testing.T) {
	bl, p := newTestBlockList(baseHosts)
	ctx := context.Background()
	sites := []string{"youtube.com", "Reddit.com", "https://www.tiktok.com/foryou"}

	require.NoError(t, bl.Apply(ctx, sites))
	first := p.hosts
	require.Equal(t, 1, p.writes)
	require.Equal(t, 1, p.flushes)

	for i := 0; i < 3; i++ {
		require.NoError(t, bl.Apply(ctx, sites))
	}
	if diff := cmp.Diff(first, p.hosts); diff != "" {
		t.Errorf("hosts changed on reapply (-first +now):\n%s", diff)
	}
	assert.Equal(t, 1, p.writes, "identical rendering must not be rewritten")

	got, err := bl.Sites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube.com", "reddit.com", "tiktok.com"}, got)
}

func TestBlockList_ApplyThenRemoveRestoresOriginal(t *testing.T) {
	bl, p := newTestBlockList(baseHosts)
	ctx := context.Background()

	require.NoError(t, bl.Apply(ctx, []string{"a.com", "b.com"}))
	require.NoError(t, bl.Remove(ctx))
	if diff := cmp.Diff(baseHosts, p.hosts); diff != "" {
		t.Errorf("remove did not restore the file (-want +got):\n%s", diff)
	}
}

// Managed lines scattered by a hand edit are gathered back into one section.
func TestBlockList_ApplyHealsTamperedFile(t *testing.T) {
	tampered := "127.0.0.1 localhost\n" +
		"127.0.0.1 a.com # ParentGuard\n" +
		"10.0.0.5 nas.lan\n" +
		"127.0.0.1 stale.com # ParentGuard\n"
	bl, p := newTestBlockList(tampered)

	require.NoError(t, bl.Apply(context.Background(), []string{"a.com"}))

	want := "127.0.0.1 localhost\n" +
		"10.0.0.5 nas.lan\n" +
		"# ParentGuard - managed block, do not edit\n" +
		"127.0.0.1 a.com # ParentGuard\n" +
		"127.0.0.1 www.a.com # ParentGuard\n"
	if diff := cmp.Diff(want, p.hosts); diff != "" {
		t.Errorf("unexpected hosts (-want +got):\n%s", diff)
	}
}

func TestBlockList_CRLFInput(t *testing.T) {
	bl, p := newTestBlockList("127.0.0.1 localhost\r\n10.0.0.5 nas.lan\r\n")

	require.NoError(t, bl.Apply(context.Background(), []string{"a.com"}))
	assert.NotContains(t, p.hosts, "\r")
	assert.True(t, strings.HasPrefix(p.hosts, "127.0.0.1 localhost\n10.0.0.5 nas.lan\n"))
}

func TestBlockList_UnblockKeepsOtherSites(t *testing.T) {
	bl, p := newTestBlockList(baseHosts)
	ctx := context.Background()

	require.NoError(t, bl.Apply(ctx, []string{"a.com", "b.com", "c.com"}))
	require.NoError(t, bl.Unblock(ctx, "www.b.com"))

	got, err := bl.Sites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "c.com"}, got)
	assert.NotContains(t, p.hosts, "b.com")
}

func TestBlockList_ReadErrorDoesNotWrite(t *testing.T) {
	bl, p := newTestBlockList(baseHosts)
	p.readErr = errors.New("permission denied")

	err := bl.Apply(context.Background(), []string{"a.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFileAccess)
	assert.Equal(t, 0, p.writes)
	assert.Equal(t, baseHosts, p.hosts)
}

func TestBlockList_WriteErrorIsFileAccess(t *testing.T) {
	bl, p := newTestBlockList(baseHosts)
	p.writeErr = errors.New("read-only file system")

	err := bl.Apply(context.Background(), []string{"a.com"})
	assert.ErrorIs(t, err, domain.ErrFileAccess)
	assert.Equal(t, 0, p.flushes)
}

func TestBlockList_InvalidSite(t *testing.T) {
	bl, p := newTestBlockList(baseHosts)
	assert.Error(t, bl.Block(context.Background(), "   "))
	assert.Equal(t, 0, p.writes)
}

func TestBlockList_TryApplyContention(t *testing.T) {
	bl, _ := newTestBlockList(baseHosts)
	bl.mu.Lock()
	err := bl.TryApply(context.Background(), []string{"a.com"})
	bl.mu.Unlock()
	assert.ErrorIs(t, err, domain.ErrLockContention)
}

func TestStripBlockList_OnlyManaged(t *testing.T) {
	content := RenderBlockList("", []string{"a.com"}, DefaultMarker)
	assert.Equal(t, "", StripBlockList(content, DefaultMarker))
}

func TestManagedSites_RequiresBothForms(t *testing.T) {
	content := "127.0.0.1 a.com # ParentGuard\n" +
		"127.0.0.1 www.a.com # ParentGuard\n" +
		"127.0.0.1 lonely.com # ParentGuard\n" +
		"127.0.0.1 b.com\n127.0.0.1 www.b.com\n"
	assert.Equal(t, []string{"a.com"}, ManagedSites(content, DefaultMarker))
}
