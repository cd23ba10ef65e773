package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level fuzzyrules config.
	WorkspaceDirName = ".fuzzyrules"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
)

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the fuzzyrules MCP server.
type Config struct {
	Server ServerConfig `yaml:"server"`
	MCP    MCPConfig    `yaml:"mcp"`
	KB     KBConfig     `yaml:"kb"`
	Merge  MergeConfig  `yaml:"merge"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// KBConfig controls default inference behavior and where knowledge bases
// are persisted between server restarts.
type KBConfig struct {
	// Upper bound on fixed-point passes before a run reports InferenceError.
	DefaultMaxIterations int `yaml:"default_max_iterations"`
	// Directory knowledge bases are auto-saved to, and loaded from on startup.
	AutosavePath string `yaml:"autosave_path"`
	// Enable autosave after every Run call.
	AutosaveEnabled bool `yaml:"autosave_enabled"`
	// Directory inference traces are written to.
	TraceDir string `yaml:"trace_dir"`
	// Enable trace recording of rule firings and fact mutations.
	TraceEnabled bool `yaml:"trace_enabled"`
}

// MergeConfig supplies defaults for the knowledge-base merge tool when a
// request omits them.
type MergeConfig struct {
	// Default merge strategy: union | override | complement | weighted | smart.
	Strategy string `yaml:"strategy"`
	// Degree delta at or above which two facts for the same key are treated as
	// contradictory during conflict detection.
	Threshold float64 `yaml:"threshold"`
	// Predicate families whose fact arguments (all but the last) are
	// mutually exclusive per subject, e.g. [["species"], ["diagnosis", "status"]].
	ExclusionFamilies [][]string `yaml:"exclusion_families"`
	// Whether SMART merges auto-resolve detected conflicts instead of
	// just reporting them.
	AutoResolve bool `yaml:"auto_resolve"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "fuzzyrules-mcp",
			Version: "0.1.0",
			LogFile: "fuzzyrules-mcp.log",
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		KB: KBConfig{
			DefaultMaxIterations: 1000,
			AutosavePath:         "data/kb",
			AutosaveEnabled:      false,
			TraceDir:             "data/traces",
			TraceEnabled:         true,
		},
		Merge: MergeConfig{
			Strategy:          "union",
			Threshold:         0.5,
			ExclusionFamilies: nil,
			AutoResolve:       false,
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace walks up from startDir looking for a .fuzzyrules/config.yaml file.
// Returns the workspace root directory (parent of .fuzzyrules/) or empty string if not found.
func DiscoverWorkspace(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for i := 0; i < MaxSearchDepth; i++ {
		candidate := filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", nil
}

// LoadWithWorkspace implements multi-layer config merge:
//
//	DefaultConfig() <- .fuzzyrules/config.yaml <- explicit --config <- CLI flags
//
// Returns the merged config and the workspace directory (empty if none found).
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	// Layer 1: Workspace config (if not disabled)
	if !opts.Disable {
		var err error
		if opts.ExplicitDir != "" {
			// Verify the explicit workspace dir has a config
			candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
			if _, statErr := os.Stat(candidate); statErr == nil {
				wsDir = opts.ExplicitDir
			}
		} else {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return cfg, "", fmt.Errorf("getting working directory: %w", cwdErr)
			}
			wsDir, err = DiscoverWorkspace(cwd)
			if err != nil {
				return cfg, "", fmt.Errorf("discovering workspace: %w", err)
			}
		}

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			raw, err := os.ReadFile(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, "", fmt.Errorf("parsing workspace config %s: %w", wsConfigPath, err)
			}
			cfg = resolveWorkspacePaths(cfg, wsDir)
		}
	}

	// Layer 2: Explicit config file (--config flag)
	if explicitConfig != "" {
		raw, err := os.ReadFile(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, wsDir, fmt.Errorf("parsing explicit config %s: %w", explicitConfig, err)
		}
	}

	return cfg, wsDir, cfg.Validate()
}

// InitWorkspace creates a .fuzzyrules/ directory with template files at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	// Check if already exists
	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	// Create directory structure
	dirs := []string{
		wsDir,
		filepath.Join(wsDir, "data"),
		filepath.Join(wsDir, "data", "kb"),
		filepath.Join(wsDir, "data", "traces"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write template config
	templateConfig := `# fuzzyrules project-level configuration
# Values here override defaults but are overridden by --config and CLI flags.

# kb:
#   default_max_iterations: 1000
#   autosave_path: "data/kb"
#   autosave_enabled: true
#   trace_dir: "data/traces"
#   trace_enabled: true

# merge:
#   strategy: smart
#   threshold: 0.5
#   auto_resolve: false
#   exclusion_families:
#     - ["species"]
#     - ["diagnosis", "status"]
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	// Write .gitignore for data directory
	gitignoreContent := "# Runtime data (knowledge bases, traces) - do not version control\ndata/\n"
	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.KB.AutosavePath = resolve(cfg.KB.AutosavePath)
	cfg.KB.TraceDir = resolve(cfg.KB.TraceDir)
	return cfg
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.KB.DefaultMaxIterations <= 0 {
		return errors.New("kb.default_max_iterations must be positive")
	}
	if c.Merge.Threshold < 0 || c.Merge.Threshold > 1 {
		return errors.New("merge.threshold must be in [0,1]")
	}
	switch c.Merge.Strategy {
	case "union", "override", "complement", "weighted", "smart":
	default:
		return fmt.Errorf("merge.strategy %q is not a recognized strategy", c.Merge.Strategy)
	}
	return nil
}

// TraceRotationInterval returns a sane default used by callers that need
// to decide how often to start a fresh trace file.
func TraceRotationInterval() time.Duration {
	return 24 * time.Hour
}
