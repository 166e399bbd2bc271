package instance

import (
	"fmt"
	"regexp"

	"github.com/matheus3301/wppbridge/internal/config"
)

const DefaultName = "main"

// The name doubles as the gateway instance name and a directory name.
var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name conforms to instance naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid instance name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// Resolve determines the active instance name using precedence:
// 1. flagOverride (--instance flag)
// 2. config.toml default_instance
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultInstance != "" {
		return cfg.DefaultInstance
	}
	return DefaultName
}

// ResolveValid is Resolve followed by ValidateName.
func ResolveValid(flagOverride string) (string, error) {
	name := Resolve(flagOverride)
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
