package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "uv", want: ModePrimary},
		{in: "PRIMARY", want: ModePrimary},
		{in: "scr", want: ModeAlternative},
		{in: " alternative ", want: ModeAlternative},
		{in: "direct", want: ModeDirect},
		{in: "bare", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhitelistMatches(t *testing.T) {
	wl := NewWhitelist([]string{"www.Example.com", "", "  ", "games.net"})

	assert.Len(t, wl, 2)
	assert.True(t, wl.Matches("example.com"))
	assert.True(t, wl.Matches("sub.example.com"))
	assert.True(t, wl.Matches("deep.sub.example.com"))
	assert.True(t, wl.Matches("games.net"))
	assert.False(t, wl.Matches("notexample.com"))
	assert.False(t, wl.Matches("example.com.evil"))
	assert.False(t, wl.Matches(""))
	assert.False(t, Whitelist(nil).Matches("example.com"))
}

func TestResolveMode(t *testing.T) {
	wl := NewWhitelist([]string{"example.com"})

	tests := []struct {
		name string
		in   ResolveInput
		want Mode
	}{
		{
			name: "alternative disabled always primary",
			in:   ResolveInput{Override: "scr", TargetURL: "https://foo.io", Whitelist: wl},
			want: ModePrimary,
		},
		{
			name: "explicit primary override",
			in:   ResolveInput{Override: "uv", TargetURL: "https://foo.io", Whitelist: wl, AlternativeEnabled: true},
			want: ModePrimary,
		},
		{
			name: "explicit alternative override",
			in:   ResolveInput{Override: "scr", TargetURL: "https://plain.com", AlternativeEnabled: true},
			want: ModeAlternative,
		},
		{
			name: "unknown override ignored",
			in:   ResolveInput{Override: "direct", TargetURL: "https://plain.com", AlternativeEnabled: true},
			want: ModePrimary,
		},
		{
			name: "io host",
			in:   ResolveInput{TargetURL: "https://foo.io/game", AlternativeEnabled: true},
			want: ModeAlternative,
		},
		{
			name: "io host with www and uppercase",
			in:   ResolveInput{TargetURL: "https://WWW.Foo.IO", AlternativeEnabled: true},
			want: ModeAlternative,
		},
		{
			name: "whitelisted subdomain",
			in:   ResolveInput{TargetURL: "https://sub.example.com/x", Whitelist: wl, AlternativeEnabled: true},
			want: ModeAlternative,
		},
		{
			name: "whitelisted exact with www",
			in:   ResolveInput{TargetURL: "https://www.example.com", Whitelist: wl, AlternativeEnabled: true},
			want: ModeAlternative,
		},
		{
			name: "suffix lookalike not matched",
			in:   ResolveInput{TargetURL: "https://notexample.com", Whitelist: wl, AlternativeEnabled: true},
			want: ModePrimary,
		},
		{
			name: "malformed url",
			in:   ResolveInput{TargetURL: "::not a url", Whitelist: wl, AlternativeEnabled: true},
			want: ModePrimary,
		},
		{
			name: "relative url",
			in:   ResolveInput{TargetURL: "foo.io", Whitelist: wl, AlternativeEnabled: true},
			want: ModePrimary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMode(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ResolveMode(tt.in), "must be deterministic")
		})
	}
}

func TestIoOverridesWhitelist(t *testing.T) {
	for _, wl := range []Whitelist{nil, NewWhitelist(nil), NewWhitelist([]string{"other.com"})} {
		got := ResolveMode(ResolveInput{TargetURL: "https://foo.io", Whitelist: wl, AlternativeEnabled: true})
		assert.Equal(t, ModeAlternative, got)
	}
}
