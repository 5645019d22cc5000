package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/inventory/internal/paths"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

type initResult struct {
	ConfigFile string `json:"config_file"`
	Created    bool   `json:"created"`
	Backend    string `json:"backend"`
	DataDir    string `json:"data_dir"`
	Items      int    `json:"items"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize inventory configuration and storage",
		Long: "Write config.yaml to the config directory if it is missing, then open\n" +
			"the storage backend once to check that it is reachable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	written := configFile{Backend: cfg.Backend, DSN: cfg.DSN}
	if a.flags.dataDir != "" {
		written.DataDir = cfg.DataDir
	}
	if cfg.StoreKey != types.DefaultStoreKey {
		written.StoreKey = cfg.StoreKey
	}
	if cfg.S3.Bucket != "" {
		written.S3 = &s3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		}
	}
	path := paths.ConfigFile(a.configDir)
	created, err := writeConfigIfMissing(path, written)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	inst, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer inst.Close()

	res := initResult{
		ConfigFile: path,
		Created:    created,
		Backend:    cfg.Backend,
		DataDir:    cfg.DataDir,
		Items:      len(inst.Items()),
	}
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	fmt.Fprintf(out, "Inventory initialized (%s backend, %d item(s))\n", res.Backend, res.Items)
	return nil
}
