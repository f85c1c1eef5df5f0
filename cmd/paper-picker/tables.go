// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-picker/internal/scoring"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the effective scoring tables",
	Long: `Tables prints the scoring tables in effect: the built-in tables merged
with scoring.tables_file (or --tables) when one is set. The output is a
complete tables file that can be edited and passed back with --tables.`,
	RunE: runTablesPrint,
}

var tablesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a scoring tables file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := scoring.LoadTables(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (version %s)\n", args[0], t.Version)
		return nil
	},
}

func init() {
	tablesCmd.AddCommand(tablesValidateCmd)
	rootCmd.AddCommand(tablesCmd)
}

func runTablesPrint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	t, err := scoring.LoadTables(cfg.Scoring.TablesFile)
	if err != nil {
		return err
	}
	data, err := t.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
