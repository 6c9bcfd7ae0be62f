package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ArtifactMode selects how per-file artifacts are laid out on disk.
type ArtifactMode string

const (
	// ArtifactModeSingle aggregates every file's artifacts into one logical
	// file per artifact kind, appending in processing order.
	ArtifactModeSingle ArtifactMode = "single"
	// ArtifactModePerFile gives each reviewed file its own artifact files,
	// named by a content hash so same-basename files never collide.
	ArtifactModePerFile ArtifactMode = "per-file"
)

// StrategyIDs is the closed set of annotation wire formats. Resolution is
// total over this list; an unknown id is a configuration error, never mapped
// to a default.
var StrategyIDs = []string{
	"json-lines",
	"line-numbers",
	"openai-responses",
	"inline-phrase",
	"inline-brackets",
	"inline-json",
	"inline-files",
}

// Options is the frozen per-run configuration for the annotation pipeline.
type Options struct {
	Strategy               string       `koanf:"strategy"`
	ShowDiffLineNumbers    bool         `koanf:"show_diff_line_numbers"`
	ShowContextLineNumbers bool         `koanf:"show_context_line_numbers"`
	DiffArtifactMode       ArtifactMode `koanf:"diff_artifact_mode"`
	ArtifactsDir           string       `koanf:"artifacts_dir"`
	WorkspaceDir           string       `koanf:"workspace_dir"`
}

// Load builds Options by layering defaults, an optional TOML file, and
// DIFFREVIEW_-prefixed environment variables, then validates the result.
func Load(configPath string) (*Options, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"strategy":           "inline-phrase",
		"diff_artifact_mode": string(ArtifactModeSingle),
		"artifacts_dir":      "artifacts",
		"workspace_dir":      "workspace",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./diffreview.toml", "$HOME/.diffreview.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("DIFFREVIEW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DIFFREVIEW_")), "__", ".", -1)
	}), nil)

	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&opts); err != nil {
		return nil, err
	}

	return &opts, nil
}

// Validate rejects unknown strategy ids and artifact modes. Silently
// substituting a default here would silently change the review protocol, so
// the error is surfaced immediately instead.
func Validate(opts *Options) error {
	if !KnownStrategy(opts.Strategy) {
		return fmt.Errorf("unknown strategy %q (known: %s)", opts.Strategy, strings.Join(StrategyIDs, ", "))
	}

	switch opts.DiffArtifactMode {
	case ArtifactModeSingle, ArtifactModePerFile:
	default:
		return fmt.Errorf("unknown diff artifact mode %q", opts.DiffArtifactMode)
	}

	if opts.ArtifactsDir == "" {
		return fmt.Errorf("artifacts_dir is required")
	}
	if opts.WorkspaceDir == "" {
		return fmt.Errorf("workspace_dir is required")
	}

	return nil
}

// KnownStrategy reports whether id names one of the seven wire formats.
func KnownStrategy(id string) bool {
	for _, known := range StrategyIDs {
		if id == known {
			return true
		}
	}
	return false
}

// InitConfig writes a sample configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# diffreview configuration

strategy = "inline-phrase"
show_diff_line_numbers = false
show_context_line_numbers = false

# "single" aggregates all files into one artifact per kind;
# "per-file" writes hash-named artifacts per reviewed file.
diff_artifact_mode = "single"

artifacts_dir = "artifacts"
workspace_dir = "workspace"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}
