package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sherlockintel/sherlock/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Sherlock configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.LLM.APIKey != "" {
			shown.LLM.APIKey = "****"
		}
		data, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value and persist it",
	Long: `Set a configuration value in the config file.

Supported keys:
  uploads_path, similarity_threshold, min_shared_entities,
  interrupt_before_gate, log_level, llm.provider, llm.model`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Store the LLM API key in the OS keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		km := config.NewKeyringManager()
		if !km.IsAvailable() {
			return fmt.Errorf("OS keychain unavailable, set SHERLOCK_LLM_API_KEY instead")
		}
		if err := km.SaveAPIKey(args[0]); err != nil {
			return err
		}
		fmt.Println("API key stored in the OS keychain.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	switch key {
	case "uploads_path":
		cfg.Ingestion.UploadsPath = value
	case "similarity_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q", value)
		}
		cfg.Analysis.SimilarityThreshold = f
	case "min_shared_entities":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		cfg.Analysis.MinSharedEntities = n
	case "interrupt_before_gate":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.Pipeline.InterruptBeforeGate = b
	case "log_level":
		cfg.LogLevel = value
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.model":
		cfg.LLM.Model = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}

	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".sherlock", "config.yaml")
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Set %s and saved %s\n", key, path)
	return nil
}
