package verify

import (
	"fmt"
	"strings"
)

// Options is the bitset configuring one verification run (spec §6.3).
type Options uint16

const (
	OptIgnoreStackMaps Options = 1 << iota
	OptNoFallback
	OptOptimize
	OptProtectedAccessCheck
	OptBootclasspathStatic
	OptClassRelationshipVerifier
	OptClassRelationshipVerifierIgnoreSCC
	OptVerboseVerification
	OptVerifyErrorDetails
	OptSkipBootstrapClasses
)

func (o Options) has(bit Options) bool { return o&bit != 0 }

// ExcludedAttribute, unlike the other options, carries a value
// (`exclude_attribute=<name>`) rather than being a single bit; Config's
// ExcludedAttribute field holds only the name of the most recently excluded attribute, matching
// the spec's single-slot configuration surface.
type Config struct {
	Options           Options
	ExcludedAttribute string
}

// ParseOptions parses the `verify[:opt[,opt]*]` command-line grammar
// (spec §6.3) into a Config. `verify` alone resets any prior settings to
// the zero Config; `verify:opt,opt2` sets exactly the named options.
func ParseOptions(s string) (Config, error) {
	s = strings.TrimSpace(s)
	if s == "verify" {
		return Config{}, nil
	}
	const prefix = "verify:"
	if !strings.HasPrefix(s, prefix) {
		return Config{}, fmt.Errorf("verify: option string must start with %q, got %q", prefix, s)
	}
	rest := strings.TrimPrefix(s, prefix)
	if rest == "" {
		return Config{}, fmt.Errorf("verify: empty option list in %q", s)
	}

	var cfg Config
	for _, opt := range strings.Split(rest, ",") {
		opt = strings.TrimSpace(opt)
		if name, value, ok := strings.Cut(opt, "="); ok {
			switch name {
			case "exclude_attribute":
				cfg.ExcludedAttribute = value
			default:
				return Config{}, fmt.Errorf("verify: unknown valued option %q", name)
			}
			continue
		}
		switch opt {
		case "ignore_stack_maps":
			cfg.Options |= OptIgnoreStackMaps
		case "no_fallback":
			cfg.Options |= OptNoFallback
		case "optimize":
			cfg.Options |= OptOptimize
		case "do_protected_access_check":
			cfg.Options |= OptProtectedAccessCheck
		case "bootclasspath_static":
			cfg.Options |= OptBootclasspathStatic
		case "class_relationship_verifier":
			cfg.Options |= OptClassRelationshipVerifier
		case "class_relationship_verifier_ignore_scc":
			cfg.Options |= OptClassRelationshipVerifier | OptClassRelationshipVerifierIgnoreSCC
		case "verbose_verification":
			cfg.Options |= OptVerboseVerification
		case "verify_error_details":
			cfg.Options |= OptVerifyErrorDetails
		case "skip_bootstrap_classes":
			cfg.Options |= OptSkipBootstrapClasses
		default:
			return Config{}, fmt.Errorf("verify: unknown option %q", opt)
		}
	}
	return cfg, nil
}
