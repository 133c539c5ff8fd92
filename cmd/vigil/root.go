package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil is an automated wellness-check call orchestrator",
	Long: `Vigil receives safety-relevant events from detectors, asks a policy
oracle what to do, and when warranted places an interactive outbound voice
call that confirms the subject is safe or escalates to emergency contacts.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the vigil YAML config file")
}
