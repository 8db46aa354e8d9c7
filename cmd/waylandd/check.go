package main

import "github.com/spf13/cobra"

func checkCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		Long: `Load and validate waylandd.json without starting the server.

Exits non-zero with a coded error when the file does not parse or a
value is out of range.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Path() == "" {
				info("no waylandd.json found, defaults apply")
			} else {
				success("%s is valid", cfg.Path())
			}
			socket := cfg.SocketName
			if socket == "" {
				socket = "(auto)"
			}
			info("socket:         %s", socket)
			info("flush interval: %s", cfg.FlushInterval)
			info("log:            %s/%s", cfg.Log.Level, cfg.Log.Format)
			if cfg.Inspect.Enabled {
				info("inspect:        http://%s", cfg.Inspect.Addr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to waylandd.json (default: working directory)")

	return cmd
}
