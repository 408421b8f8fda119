package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Reads and writes the project configuration file (.linkcheck.toml in the
working directory unless --config is given). Settings given on the command
line of check and watch take precedence over the file.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a setting, or every setting when no key is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Changes a setting and saves the configuration file.

Lists are given comma separated:

  linkcheck config set diagnostics.ignore_links "https://localhost/*,drafts/*"

Diagnostic categories take ignore, warning or error.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	svc, err := loadSettings()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		val, ok := svc.Value(args[0])
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}
		cmd.Println(formatValue(val))
		return nil
	}

	for _, key := range svc.Keys() {
		if val, ok := svc.Value(key); ok {
			cmd.Printf("%s = %s\n", key, formatValue(val))
		} else {
			cmd.Printf("%s (default)\n", key)
		}
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := loadSettings()
	if err != nil {
		return err
	}

	if err := svc.Set(args[0], args[1]); err != nil {
		return err
	}

	cmd.Printf("Set %s in %s\n", args[0], svc.Path())
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	svc, err := loadSettings()
	if err != nil {
		return err
	}
	cmd.Println(svc.Path())
	return nil
}

func formatValue(val any) string {
	switch v := val.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case []string:
		return fmt.Sprintf("%q", v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		return fmt.Sprintf("%q", items)
	default:
		return fmt.Sprint(v)
	}
}
