// pkg/cli/cli.go
//
// Flag helpers shared by the shovel commands. Flags are bound to a Viper
// instance so every setting can also come from SHOVEL_* environment
// variables or shovel.yaml.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for settings.
const EnvPrefix = "SHOVEL"

// AddStringFlag adds a string flag and optionally marks as required.
// Note: Errors marking flag as required are logged but don't fail - Cobra will validate at runtime.
func AddStringFlag(cmd *cobra.Command, name, shorthand, def, help string, required bool) {
	cmd.Flags().StringP(name, shorthand, def, help)
	if required {
		if err := cmd.MarkFlagRequired(name); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to mark flag %s as required: %v\n", name, err)
		}
	}
}

// AddBoolFlag adds a boolean flag.
func AddBoolFlag(cmd *cobra.Command, name, shorthand string, def bool, help string) {
	cmd.Flags().BoolP(name, shorthand, def, help)
}

// BindFlagsToViper binds every local and persistent flag of cmd to v.
// Errors are collected rather than stopping at the first one.
func BindFlagsToViper(cmd *cobra.Command, v *viper.Viper) error {
	var result error
	bind := func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = multierror.Append(result, fmt.Errorf("bind --%s: %w", f.Name, err))
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.PersistentFlags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	return result
}

// SetViperEnvPrefix lets Viper read env with prefix, mapping "log-level" to
// PREFIX_LOG_LEVEL.
func SetViperEnvPrefix(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// GetStringOrEmpty returns the string value or empty string if error.
func GetStringOrEmpty(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return val
}

// GetBool returns the bool value or false if the flag does not exist.
func GetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return val
}

// ExclusiveBools returns the names of the set flags among names.
func ExclusiveBools(cmd *cobra.Command, names ...string) []string {
	var set []string
	for _, n := range names {
		if GetBool(cmd, n) {
			set = append(set, n)
		}
	}
	return set
}
