package cmd

import (
	"github.com/spf13/cobra"

	"github.com/juggle-dev/keeper/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a commented default configuration file. The target is the path
given with --config, or ~/.config/keeper/keeper.yaml otherwise.

Refuses to overwrite an existing file unless --force is given.`,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}

	if err := config.WriteDefault(path, initForce); err != nil {
		return err
	}

	cmd.Printf("Wrote %s\n", path)
	return nil
}
