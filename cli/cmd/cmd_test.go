package cmd

import (
	"flag"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/argilla-geo/strata/config"
	"github.com/argilla-geo/strata/service"
)

func TestCommonFlags_IncludesTUI(t *testing.T) {
	hasTUI := false
	for _, f := range CommonFlags() {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}
	if !hasTUI {
		t.Error("CommonFlags should include --tui for explicit error handling")
	}
}

func testContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, value := range args {
		set.String(name, "", "")
		if err := set.Set(name, value); err != nil {
			t.Fatalf("setting flag %s: %v", name, err)
		}
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestBuildClient_RequiresURL(t *testing.T) {
	c := testContext(t, nil)
	_, err := buildClient(c, &config.Config{}, "")
	if err == nil {
		t.Fatal("expected error when no URL is configured")
	}
}

func TestBuildClient_FlagOverridesConfig(t *testing.T) {
	c := testContext(t, map[string]string{"url": "https://flag.example.com"})
	client, err := buildClient(c, &config.Config{URL: "https://config.example.com"}, t.TempDir())
	if err != nil {
		t.Fatalf("buildClient failed: %v", err)
	}
	if client.Metrics().Snapshot().Target != "https://flag.example.com" {
		t.Errorf("target = %q, want the flag URL", client.Metrics().Snapshot().Target)
	}
}

func TestBuildTokens_Precedence(t *testing.T) {
	cfg := &config.Config{TokenEnv: "CFG_TOKEN", Token: "static-token"}

	// Flag beats config.
	tokens, err := buildTokens(testContext(t, map[string]string{"token-env": "FLAG_TOKEN"}), cfg)
	if err != nil {
		t.Fatalf("buildTokens failed: %v", err)
	}
	if env, ok := tokens.(service.EnvToken); !ok || string(env) != "FLAG_TOKEN" {
		t.Errorf("tokens = %#v, want EnvToken(FLAG_TOKEN)", tokens)
	}

	// Config token_env beats static token.
	tokens, err = buildTokens(testContext(t, nil), cfg)
	if err != nil {
		t.Fatalf("buildTokens failed: %v", err)
	}
	if env, ok := tokens.(service.EnvToken); !ok || string(env) != "CFG_TOKEN" {
		t.Errorf("tokens = %#v, want EnvToken(CFG_TOKEN)", tokens)
	}

	// Static token as a last resort.
	tokens, err = buildTokens(testContext(t, nil), &config.Config{Token: "static-token"})
	if err != nil {
		t.Fatalf("buildTokens failed: %v", err)
	}
	if st, ok := tokens.(service.StaticToken); !ok || string(st) != "static-token" {
		t.Errorf("tokens = %#v, want StaticToken", tokens)
	}

	// Nothing configured: unauthenticated.
	tokens, err = buildTokens(testContext(t, nil), &config.Config{})
	if err != nil {
		t.Fatalf("buildTokens failed: %v", err)
	}
	if tokens != nil {
		t.Errorf("tokens = %#v, want nil", tokens)
	}
}

func TestBuildCache_Backends(t *testing.T) {
	if c, err := buildCache(&config.Config{}); err != nil || c != nil {
		t.Errorf("empty backend: cache = %v, err = %v, want nil/nil", c, err)
	}

	diskCfg := &config.Config{}
	diskCfg.Cache.Backend = "disk"
	diskCfg.Cache.Path = t.TempDir()
	if c, err := buildCache(diskCfg); err != nil || c == nil {
		t.Errorf("disk backend: cache = %v, err = %v", c, err)
	}

	badCfg := &config.Config{}
	badCfg.Cache.Backend = "memcached"
	if _, err := buildCache(badCfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}
