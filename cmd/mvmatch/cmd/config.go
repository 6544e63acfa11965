package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openrecon/mvmatch/internal/config"
)

// newConfigCmd creates the config command, which prints the effective
// configuration after file and environment merging.
func newConfigCmd() *cobra.Command {
	var scenePath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as YAML, after merging the optional
.mvmatch.yaml file next to the scene and MVMATCH_* environment variables
over the built-in defaults.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(sceneDir(scenePath))
			if err != nil {
				return reportError(cmd, err)
			}
			cfg.ScenePath = scenePath

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&scenePath, "input", "i", "", "Scene description file; its directory is searched for "+config.ConfigFileName)
	return cmd
}

// sceneDir returns the directory searched for the dataset config file.
func sceneDir(scenePath string) string {
	if scenePath == "" {
		return ""
	}
	return filepath.Dir(scenePath)
}
