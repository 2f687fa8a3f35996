package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/metasearch/internal/engine"
)

// isolateEnv clears provider settings so the tests never reach the network.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GOOGLE_API_KEY", "SERPAPI_KEY", "BING_API_KEY", "SEARX_URL", "SEARXNG_URL",
		"SEARCH_FILE", "TOR_PROXY", "I2P_PROXY", "METASEARCH_CONFIG", "TRACING",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("DDG_DISABLE", "1")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestSearch_FileProviderMarkdown(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "results.json")
	data := `[{"title":"Go tour","link":"https://go.dev/tour/","snippet":"Learn go interactively"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write results: %v", err)
	}

	out, err := runCLI(t, "search", "--mode", "surface", "--format", "markdown", "--search.file", path, "go", "tour")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if !strings.Contains(out, "[Go tour](https://go.dev/tour/)") {
		t.Fatalf("expected markdown link in output:\n%s", out)
	}
}

func TestSearch_WritesOutFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")
	if err := os.WriteFile(path, []byte(`[{"title":"Go","link":"https://go.dev/"}]`), 0o644); err != nil {
		t.Fatalf("write results: %v", err)
	}
	outPath := filepath.Join(dir, "out.json")
	if _, err := runCLI(t, "search", "-m", "surface", "-f", "json", "-o", outPath, "--search.file", path, "go"); err != nil {
		t.Fatalf("search error: %v", err)
	}
	b, err := os.ReadFile(outPath)
	if err != nil || !strings.Contains(string(b), `"link": "https://go.dev/"`) {
		t.Fatalf("expected json output file, err=%v body=%s", err, b)
	}
}

// Ensures exit code policy conditions are surfaced as errors from the command.
func TestSearch_DeepWithoutProxy_ExitCode(t *testing.T) {
	isolateEnv(t)
	out, err := runCLI(t, "search", "--mode", "deep", "hidden", "services")
	if !errors.Is(err, engine.ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("exit code = %d, want 2", exitCode(err))
	}
	if !strings.Contains(out, "no provider available") {
		t.Fatalf("reason should be printed, got %q", out)
	}
}

func TestSearch_InvalidMode(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "search", "--mode", "everything", "go")
	if err == nil || exitCode(err) != 1 {
		t.Fatalf("expected invalid mode error with exit code 1, got %v", err)
	}
}

func TestProviders_JSON(t *testing.T) {
	isolateEnv(t)
	out, err := runCLI(t, "providers", "--json", "--tor.proxy", "socks5h://127.0.0.1:9050")
	if err != nil {
		t.Fatalf("providers error: %v", err)
	}
	if !strings.Contains(out, `"deepweb_enabled": true`) || !strings.Contains(out, `"id": "tor:ahmia"`) {
		t.Fatalf("unexpected providers output:\n%s", out)
	}
}

func TestProbe_UnknownProvider(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "probe", "altavista", "go")
	if !errors.Is(err, engine.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

// Flags beat the config file; file values beat defaults.
func TestConfigFlagsOverrideFile(t *testing.T) {
	isolateEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "metasearch.yaml")
	if err := os.WriteFile(cfgPath, []byte("max:\n  surface: 4\n  deepweb: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := runCLI(t, "providers", "--json", "--config", cfgPath, "--max.surface", "6")
	if err != nil {
		t.Fatalf("providers error: %v", err)
	}
	if !strings.Contains(out, `"max_surface_results": 6`) || !strings.Contains(out, `"max_deepweb_results": 2`) {
		t.Fatalf("layering wrong:\n%s", out)
	}
}
