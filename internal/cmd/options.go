package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// parseOptions loads options from, in increasing order of precedence: the
// config file named by the config-file flag, environment variables with the
// envPrefix, and command line flags.
func parseOptions(cmd *cobra.Command, options interface{}, envPrefix string) error {
	v := viper.New()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if flag := cmd.Flags().Lookup("config-file"); flag != nil {
		if configFile := flag.Value.String(); configFile != "" {
			v.SetConfigFile(configFile)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && v.ConfigFileUsed() != "" {
			return err
		}
	}

	return v.Unmarshal(options)
}
