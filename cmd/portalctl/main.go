package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bagcat/portal/internal/client"
	"github.com/bagcat/portal/internal/domain/codec"
	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/logging"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const usage = `Usage: portalctl [global flags] <command> [flags] [args]

Commands:
  catalog              list catalog entries
  launch <id>          issue a launch token and resolve it
  play <id>            launch and load an entry the way the portal frame does
  encode <url>         build a play path locally
  decode <path>        reverse a play path locally
  probe [endpoint...]  probe tunnel endpoints, or show the server's transport

Global flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "portalctl:", err)
		os.Exit(1)
	}
}

type globals struct {
	server  string
	timeout time.Duration
	verbose bool
	brand   string
	primary string
	alt     string
	stderr  io.Writer
}

func (g globals) prefixes() route.Prefixes {
	return route.Prefixes{Primary: g.primary, Alternative: g.alt}
}

func (g globals) logger() *zap.Logger {
	if !g.verbose {
		return zap.NewNop()
	}
	logger, err := logging.New(logging.Config{Development: true, Output: g.stderr})
	if err != nil {
		return zap.NewNop()
	}
	return logger.Logger
}

func (g globals) client() (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:  g.server,
		Timeout:  g.timeout,
		RetryMax: 2,
		Brand:    g.brand,
		Prefixes: g.prefixes(),
		Logger:   g.logger(),
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	g := globals{stderr: stderr}
	fs := flag.NewFlagSet("portalctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&g.server, "server", envOr("PORTAL_URL", "http://localhost:2345"), "Portal base URL")
	fs.DurationVar(&g.timeout, "timeout", 30*time.Second, "Request timeout")
	fs.BoolVar(&g.verbose, "v", false, "Verbose logging")
	fs.StringVar(&g.brand, "brand", negotiator.DefaultBrand, "Portal brand, used to detect the portal shell in frames")
	fs.StringVar(&g.primary, "primary-prefix", route.DefaultPrefixes().Primary, "Primary transport prefix")
	fs.StringVar(&g.alt, "alternative-prefix", route.DefaultPrefixes().Alternative, "Alternative transport prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "catalog":
		return runCatalog(ctx, g, rest, stdout)
	case "launch":
		return runLaunch(ctx, g, rest, stdout)
	case "play":
		return runPlay(ctx, g, rest, stdout, stderr)
	case "encode":
		return runEncode(g, rest, stdout, stderr)
	case "decode":
		return runDecode(g, rest, stdout, stderr)
	case "probe":
		return runProbe(ctx, g, rest, stdout, stderr)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runCatalog(ctx context.Context, g globals, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print the raw catalog")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := g.client()
	if err != nil {
		return err
	}
	cat, err := c.Catalog(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(stdout, cat)
	}

	list := func(section string, entries []client.Entry) {
		for _, e := range entries {
			state := ""
			switch {
			case e.Disabled:
				state = " (disabled)"
			case e.Local:
				state = " (local)"
			}
			fmt.Fprintf(stdout, "%-40s %-12s %s%s\n", e.ID, section, e.AppName, state)
		}
	}
	list("apps", cat.Apps)
	categories := cat.Categories
	if len(categories) != len(cat.Games) {
		categories = make([]string, 0, len(cat.Games))
		for category := range cat.Games {
			categories = append(categories, category)
		}
		sort.Strings(categories)
	}
	for _, category := range categories {
		list(category, cat.Games[category])
	}
	return nil
}

func runLaunch(ctx context.Context, g globals, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("launch: expected exactly one entry id")
	}

	c, err := g.client()
	if err != nil {
		return err
	}
	res, err := c.Launch(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	path, err := c.Resolve(ctx, res.PlayURL)
	if err != nil {
		return err
	}
	return printJSON(stdout, map[string]any{
		"gameId":   res.GameID,
		"mode":     res.Mode,
		"playUrl":  c.BaseURL() + res.PlayURL,
		"playPath": path,
	})
}

func runPlay(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts client.PlayOptions
	fs.BoolVar(&opts.Alternative, "alternative", false, "Enable the alternative engine")
	fs.BoolVar(&opts.DirectFallback, "direct", false, "Permit a direct load as the last attempt")
	fs.StringVar(&opts.UserEndpoint, "endpoint", "", "Tunnel endpoint override")
	fs.BoolVar(&opts.Static, "static", false, "Probe candidate endpoints instead of the portal's own tunnel")
	candidates := fs.String("candidates", "", "Comma separated candidate endpoints for -static")
	fs.DurationVar(&opts.FrameTimeout, "frame-timeout", 0, "Override the per-mode frame timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("play: expected exactly one entry id")
	}
	opts.Candidates = splitList(*candidates)

	c, err := g.client()
	if err != nil {
		return err
	}
	res, err := c.Play(ctx, fs.Arg(0), opts)
	if res != nil {
		if perr := printJSON(stdout, res); perr != nil {
			return perr
		}
	}
	if client.IsNoEndpoint(err) {
		return fmt.Errorf("no tunnel endpoint reachable; set -endpoint or check the candidates: %w", err)
	}
	return err
}

func runEncode(g globals, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	host := fs.String("host", "localhost:2345", "Portal host the path is built for")
	mode := fs.String("mode", "primary", "primary, alternative or direct")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("encode: expected exactly one url")
	}
	m, err := route.ParseMode(*mode)
	if err != nil {
		return err
	}

	target := route.NormalizePlayableURL(fs.Arg(0))
	paths := route.NewBuilder(codec.New(nil), g.prefixes())
	fmt.Fprintln(stdout, paths.PlayPath(target, m, *host))
	return nil
}

func runDecode(g globals, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	host := fs.String("host", "localhost:2345", "Portal host the path was built for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("decode: expected exactly one path")
	}

	paths := route.NewBuilder(codec.New(nil), g.prefixes())
	decoded, mode := paths.DecodePath(fs.Arg(0), *host)
	fmt.Fprintf(stdout, "%s\t%s\n", mode, decoded)
	return nil
}

func runProbe(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	timeout := fs.Duration("timeout", negotiator.DefaultProbeTimeout, "Per-endpoint timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		c, err := g.client()
		if err != nil {
			return err
		}
		st, err := c.Transport(ctx)
		if st != nil {
			if perr := printJSON(stdout, st); perr != nil {
				return perr
			}
		}
		return err
	}

	prober := negotiator.NewWebSocketProber(*timeout)
	failed := 0
	for _, endpoint := range fs.Args() {
		pctx, cancel := context.WithTimeout(ctx, *timeout)
		start := time.Now()
		err := prober.Probe(pctx, endpoint)
		cancel()

		if err != nil {
			failed++
			fmt.Fprintf(stdout, "FAIL %s: %v\n", endpoint, err)
			continue
		}
		fmt.Fprintf(stdout, "OK   %s (%s)\n", endpoint, time.Since(start).Round(time.Millisecond))
	}
	if failed == fs.NArg() {
		return negotiator.ErrNoEndpoint
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
