package instance

import (
	"testing"

	"github.com/matheus3301/wppbridge/internal/config"
)

func TestResolve(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if got := Resolve(""); got != DefaultName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultName)
	}

	cfg := config.Default()
	cfg.DefaultInstance = "sales"
	if err := config.Save(ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "sales" {
		t.Errorf("Resolve() = %q, want sales", got)
	}
	if got := Resolve("ops"); got != "ops" {
		t.Errorf("Resolve(ops) = %q, want ops", got)
	}
}

func TestResolveValidRejectsBadFlag(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	if _, err := ResolveValid("Bad Name"); err == nil {
		t.Error("ResolveValid(Bad Name) expected error")
	}
	if name, err := ResolveValid(""); err != nil || name != DefaultName {
		t.Errorf("ResolveValid() = %q, %v", name, err)
	}
}
