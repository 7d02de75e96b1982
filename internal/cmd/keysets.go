package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal/data"
	"github.com/keysmith-io/keysmith/internal/keyring"
	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/internal/primitives"
	"github.com/keysmith-io/keysmith/secrets"
	"github.com/keysmith-io/keysmith/uid"
)

type databaseOptions struct {
	DBFile             string `mapstructure:"db-file"`
	DBConnectionString string `mapstructure:"db-connection-string"`
	DBEncryptionKey    string `mapstructure:"db-encryption-key"`
}

func newKeysetsCmd(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keysets",
		Short:   "Manage keysets and their keys",
		Aliases: []string{"keyset"},
	}

	cmd.PersistentFlags().String("db-file", "$HOME/.keysmith/keysmith.db", "Path to SQLite 3 database")
	cmd.PersistentFlags().String("db-connection-string", "", "PostgreSQL connection string")
	cmd.PersistentFlags().String("db-encryption-key", "$HOME/.keysmith/keysmith.db.key", "Database encryption key")

	cmd.AddCommand(newKeysetsListCmd(cli))
	cmd.AddCommand(newKeysetsCreateCmd(cli))
	cmd.AddCommand(newKeysetsKeysCmd(cli))
	cmd.AddCommand(newKeysetsAddKeyCmd(cli))
	cmd.AddCommand(newKeysetsPromoteCmd(cli))
	cmd.AddCommand(newKeysetsRemoveCmd(cli))
	cmd.AddCommand(newKeysetsExportInfoCmd(cli))
	cmd.AddCommand(newKeysetsExportCmd(cli))

	return cmd
}

// openDatabase connects to the database named by the persistent flags and
// loads the data key that seals stored key material.
func openDatabase(cmd *cobra.Command) (*gorm.DB, error) {
	var options databaseOptions
	if err := parseOptions(cmd, &options, "KEYSMITH"); err != nil {
		return nil, err
	}

	var driver gorm.Dialector
	var err error
	switch {
	case options.DBConnectionString != "":
		driver, err = data.NewPostgresDriver(options.DBConnectionString)
	default:
		dbFile, pathErr := canonicalPath(options.DBFile)
		if pathErr != nil {
			return nil, pathErr
		}
		driver, err = data.NewSQLiteDriver(dbFile)
	}
	if err != nil {
		return nil, err
	}

	dbEncryptionKey, err := canonicalPath(options.DBEncryptionKey)
	if err != nil {
		return nil, err
	}

	provider := secrets.NewNativeSecretProvider(secrets.NewFileStorage(secrets.FileConfig{}))
	return data.NewDB(driver, func(db *gorm.DB) error {
		return data.LoadDBKey(db, provider, dbEncryptionKey)
	})
}

func newKeysetsListCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keysets",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			keysets, err := data.ListKeysets(db)
			if err != nil {
				return err
			}

			type row struct {
				Name    string `header:"NAME"`
				Family  string `header:"FAMILY"`
				Keys    int    `header:"KEYS"`
				Created string `header:"CREATED"`
			}

			rows := make([]row, 0, len(keysets))
			for _, keyset := range keysets {
				keys, err := data.ListKeys(db, keyset.ID)
				if err != nil {
					return err
				}
				rows = append(rows, row{
					Name:    keyset.Name,
					Family:  keyset.Family,
					Keys:    len(keys),
					Created: keyset.CreatedAt.Format(time.RFC3339),
				})
			}

			if len(rows) == 0 {
				cli.Output("No keysets found")
				return nil
			}

			cli.Table(rows)
			return nil
		},
	}
}

func newKeysetsCreateCmd(cli *CLI) *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "create KEYSET",
		Short: "Create a keyset with one primary key",
		Example: `
# Create a keyset for probabilistic encryption
$ keysmith keysets create app-secrets --template AES256_GCM

# Create a keyset that supports equality search over ciphertext
$ keysmith keysets create user-pii --template AES256_SIV
`,
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			kr, err := keyring.Create(db, primitives.Default(), args[0], template)
			if err != nil {
				return err
			}

			cli.Output("Created keyset %q (%s)", kr.Keyset().Name, kr.Keyset().Family)
			return nil
		},
	}

	cmd.Flags().StringVar(&template, "template", "AES256_GCM", fmt.Sprintf("Key template, one of %v", primitives.TemplateNames()))

	return cmd
}

func newKeysetsKeysCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "keys KEYSET",
		Short: "List the keys in a keyset",
		Args:  ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			kr, err := keyring.Open(db, primitives.Default(), args[0])
			if err != nil {
				return err
			}

			keys, err := kr.Keys()
			if err != nil {
				return err
			}

			type row struct {
				ID      string `header:"ID"`
				Status  string `header:"STATUS"`
				Kind    string `header:"KIND"`
				Primary string `header:"PRIMARY"`
				Created string `header:"CREATED"`
			}

			rows := make([]row, 0, len(keys))
			for _, key := range keys {
				primary := ""
				if key.IsPrimary {
					primary = "yes"
				}
				rows = append(rows, row{
					ID:      key.ID.String(),
					Status:  string(key.Status),
					Kind:    string(key.Kind),
					Primary: primary,
					Created: key.CreatedAt.Format(time.RFC3339),
				})
			}

			cli.Table(rows)
			return nil
		},
	}
}

func newKeysetsAddKeyCmd(cli *CLI) *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "add-key KEYSET",
		Short: "Generate a new key in a keyset",
		Long: `Generate a new key in a keyset. The new key is enabled but not primary;
use promote to start encrypting under it.`,
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			kr, err := keyring.Open(db, primitives.Default(), args[0])
			if err != nil {
				return err
			}

			if template == "" {
				template, err = defaultTemplate(kr.Keyset().Family)
				if err != nil {
					return err
				}
			}

			key, err := kr.GenerateKey(template)
			if err != nil {
				return err
			}

			cli.Output("Added key %s to keyset %q", key.ID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "Key template, defaults to the keyset's family with a keyed prefix")

	return cmd
}

// defaultTemplate picks the keyed template for an algorithm family.
func defaultTemplate(family string) (string, error) {
	for _, name := range primitives.TemplateNames() {
		template, err := primitives.TemplateByName(name)
		if err != nil {
			return "", err
		}
		if template.Family == family && template.Kind == models.PrefixKeyed {
			return name, nil
		}
	}
	return "", fmt.Errorf("no template for family %q", family)
}

func newKeysetsPromoteCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "promote KEYSET KEY",
		Short: "Make a key the keyset's primary key",
		Args:  ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			keyID, err := uid.Parse([]byte(args[1]))
			if err != nil {
				return Error{
					Cause:         "invalid key id",
					OriginalError: err,
					Suggestion:    "Run `keysmith keysets keys` to list key ids.",
				}
			}

			kr, err := keyring.Open(db, primitives.Default(), args[0])
			if err != nil {
				return err
			}

			if err := kr.Promote(keyID); err != nil {
				return err
			}

			cli.Output("Key %s is now the primary key of keyset %q", keyID, args[0])
			return nil
		},
	}
}

func newKeysetsRemoveCmd(cli *CLI) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "remove KEYSET",
		Aliases: []string{"rm"},
		Short:   "Delete a keyset and all of its keys",
		Args:    ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !force {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Delete keyset %q? Everything it encrypted becomes unreadable.", name),
				}
				if err := survey.AskOne(prompt, &confirmed, cli.surveyIO); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			kr, err := keyring.Open(db, primitives.Default(), name)
			if err != nil {
				return err
			}

			if err := kr.Delete(); err != nil {
				return err
			}

			cli.Output("Deleted keyset %q", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Delete without prompting for confirmation")

	return cmd
}

func newKeysetsExportInfoCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "export-info KEYSET",
		Short: "Print a keyset's metadata as JSON, without key material",
		Args:  ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			kr, err := keyring.Open(db, primitives.Default(), args[0])
			if err != nil {
				return err
			}

			exported, err := kr.ExportInfo()
			if err != nil {
				return err
			}

			return printJSON(cli, exported)
		},
	}
}

func newKeysetsExportCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "export KEYSET",
		Short: "Print a keyset as JSON, including plaintext key material",
		Long: `Print a keyset as JSON, including plaintext key material. Anyone holding
the output can decrypt everything the keyset ever encrypted; treat it like
the keys themselves.`,
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}

			kr, err := keyring.Open(db, primitives.Default(), args[0])
			if err != nil {
				return err
			}

			exported, err := kr.UnsafeExport()
			if err != nil {
				return err
			}

			logging.Warnf("exporting keyset %q with plaintext key material", args[0])
			return printJSON(cli, exported)
		},
	}
}

func printJSON(cli *CLI, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cli.Output("%s", out)
	return nil
}
