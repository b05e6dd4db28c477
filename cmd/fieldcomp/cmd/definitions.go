package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/solatis/fieldcomp/internal/compose"
	"github.com/solatis/fieldcomp/internal/types"
)

var definitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "Manage stored field definitions",
}

var definitionsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate the config file's definitions and write them to the store",
	RunE:  runDefinitionsImport,
}

var definitionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print active definitions",
	RunE:  runDefinitionsList,
}

func init() {
	rootCmd.AddCommand(definitionsCmd)
	definitionsCmd.AddCommand(definitionsImportCmd, definitionsListCmd)
	definitionsListCmd.Flags().String("format", "yaml", "output format (yaml, json)")
	definitionsListCmd.Flags().String("datatype", "", "only list this datatype")
}

func runDefinitionsImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	defs := cfg.Definitions
	if len(defs) == 0 {
		return fmt.Errorf("no definitions in config file")
	}

	// reject anything the engine would reject before touching the store
	if _, err := compose.BuildTable(defs); err != nil {
		return fmt.Errorf("invalid definitions: %w", err)
	}

	database, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.Save(ctx, defs); err != nil {
		return err
	}
	log.Info("definitions imported", zap.Int("definitions", len(defs)))
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d definitions\n", len(defs))
	return nil
}

func runDefinitionsList(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	datatype, _ := cmd.Flags().GetString("datatype")

	defs, err := loadDefinitions(cmd.Context())
	if err != nil {
		return err
	}
	if datatype != "" {
		defs = filterDatatype(defs, datatype)
	}
	return writeDefinitions(cmd.OutOrStdout(), format, defs)
}

func filterDatatype(defs []types.DefinitionConfig, datatype string) []types.DefinitionConfig {
	var out []types.DefinitionConfig
	for _, d := range defs {
		if strings.EqualFold(d.Datatype, datatype) {
			out = append(out, d)
		}
	}
	return out
}

func writeDefinitions(w io.Writer, format string, defs []types.DefinitionConfig) error {
	if defs == nil {
		defs = []types.DefinitionConfig{}
	}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(defs); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	default:
		return fmt.Errorf("unknown format %q (expected yaml or json)", format)
	}
}
