package negotiator

import (
	"strings"
	"testing"
	"time"

	"github.com/bagcat/portal/internal/domain/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttempts(t *testing.T) {
	p, a, d := route.ModePrimary, route.ModeAlternative, route.ModeDirect

	tests := []struct {
		name        string
		resolved    route.Mode
		alternative bool
		direct      bool
		want        []route.Mode
	}{
		{"primary first", p, true, false, []route.Mode{p, a}},
		{"alternative first", a, true, false, []route.Mode{a, p}},
		{"with direct", a, true, true, []route.Mode{a, p, d}},
		{"alternative unavailable", a, false, true, []route.Mode{p, d}},
		{"primary only", p, false, false, []route.Mode{p}},
		{"direct not permitted", d, true, false, []route.Mode{a, p}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Attempts(tt.resolved, tt.alternative, tt.direct))
		})
	}
}

func TestSessionWalksAttempts(t *testing.T) {
	s := NewSession(route.ModeAlternative, true, true)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, route.ModeAlternative, cur)

	next, err := s.Fail(IssueProxy, "portal shell in frame")
	require.NoError(t, err)
	assert.Equal(t, route.ModePrimary, next)

	next, err = s.Fail(IssueTimeout, "")
	require.NoError(t, err)
	assert.Equal(t, route.ModeDirect, next)

	_, err = s.Fail(IssueError, "status 502")
	assert.ErrorIs(t, err, ErrNoWorkingRoute)

	_, ok = s.Current()
	assert.False(t, ok)

	_, err = s.Fail(IssueError, "again")
	assert.ErrorIs(t, err, ErrNoWorkingRoute)

	failures := s.Failures()
	require.Len(t, failures, 3)
	assert.Equal(t, Failure{Mode: route.ModeAlternative, Issue: IssueProxy, Detail: "portal shell in frame"}, failures[0])
	assert.Equal(t, route.ModeDirect, failures[2].Mode)
}

func TestSessionNeverRepeatsMode(t *testing.T) {
	s := NewSession(route.ModePrimary, true, true)
	seen := map[route.Mode]bool{}
	for {
		cur, ok := s.Current()
		if !ok {
			break
		}
		require.False(t, seen[cur], "mode %s tried twice", cur)
		seen[cur] = true
		_, _ = s.Fail(IssueError, "")
	}
	assert.Len(t, seen, 3)
}

func TestFrameTimeout(t *testing.T) {
	assert.Equal(t, 12*time.Second, FrameTimeout(route.ModePrimary))
	assert.Equal(t, 12*time.Second, FrameTimeout(route.ModeAlternative))
	assert.Equal(t, 18*time.Second, FrameTimeout(route.ModeDirect))
}

func TestInspectFrame(t *testing.T) {
	tests := []struct {
		name string
		path string
		html string
		want Issue
	}{
		{"root path", "/", "<html><title>Game</title></html>", IssueProxy},
		{"docs path", "/DOCS/", "", IssueProxy},
		{"branded title", "/uv/service/ab", "<html><head><title>BagCat | Home</title></head></html>", IssueProxy},
		{"proxy error trace", "/uv/service/ab", `<div id="errorTrace-wrapper">trace</div>`, IssueProxy},
		{"proxy fetched url", "/uv/service/ab", `<p id="fetchedURL">https://x</p>`, IssueProxy},
		{
			"home page layout",
			"/scramjet/x",
			`<input placeholder="Search games"><h2> Popular </h2>`,
			IssueProxy,
		},
		{
			"search input without heading",
			"/scramjet/x",
			`<input placeholder="Search games"><h2>Trending</h2>`,
			"",
		},
		{"target page", "/uv/service/ab", "<html><head><title>Slope</title></head><body><canvas></canvas></body></html>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InspectFrame(strings.NewReader(tt.html), tt.path, DefaultBrand)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
