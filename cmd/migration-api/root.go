package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use: "migration-api",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}
