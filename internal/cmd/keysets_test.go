package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/lensesio/tableprinter"
	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/testing/patch"
)

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}

	table := tableprinter.New(buf)
	table.HeaderAlignment = tableprinter.AlignLeft
	table.AutoWrapText = false
	table.DefaultAlignment = tableprinter.AlignLeft
	table.CenterSeparator = ""
	table.ColumnSeparator = ""
	table.RowSeparator = ""
	table.HeaderLine = false
	table.BorderBottom = false
	table.BorderLeft = false
	table.BorderRight = false
	table.BorderTop = false

	return &CLI{
		Stdin:  strings.NewReader(""),
		Stdout: buf,
		Stderr: buf,
		table:  table,
	}, buf
}

func runCommand(t *testing.T, cli *CLI, args ...string) error {
	t.Helper()
	ctx := context.WithValue(context.Background(), ctxKey, cli)
	return Run(ctx, args...)
}

func TestKeysetsCmd(t *testing.T) {
	patch.ModelsSymmetricKey(t)
	logging.PatchLogger(t, zerolog.NewTestWriter(t))

	dir := t.TempDir()
	dbFlags := []string{
		"--db-file", filepath.Join(dir, "keysmith.db"),
		"--db-encryption-key", filepath.Join(dir, "keysmith.db.key"),
	}

	run := func(t *testing.T, args ...string) (string, error) {
		cli, buf := newTestCLI(t)
		err := runCommand(t, cli, append(args, dbFlags...)...)
		return buf.String(), err
	}

	out, err := run(t, "keysets", "create", "app-secrets", "--template", "AES256_GCM")
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, `Created keyset "app-secrets"`))

	t.Run("duplicate create fails", func(t *testing.T) {
		_, err := run(t, "keysets", "create", "app-secrets", "--template", "AES256_GCM")
		assert.ErrorContains(t, err, "already exists")
	})

	t.Run("list", func(t *testing.T) {
		out, err := run(t, "keysets", "list")
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(out, "app-secrets"))
	})

	t.Run("add key and promote", func(t *testing.T) {
		out, err := run(t, "keysets", "add-key", "app-secrets")
		assert.NilError(t, err)

		match := regexp.MustCompile(`Added key (\S+) to`).FindStringSubmatch(out)
		assert.Assert(t, match != nil, "output: %v", out)
		keyID := match[1]

		out, err = run(t, "keysets", "promote", "app-secrets", keyID)
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(out, "is now the primary key"))

		out, err = run(t, "keysets", "keys", "app-secrets")
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(out, keyID))
		assert.Assert(t, strings.Contains(out, "yes"))
	})

	t.Run("promote with bad key id", func(t *testing.T) {
		_, err := run(t, "keysets", "promote", "app-secrets", "!!!")
		assert.ErrorContains(t, err, "invalid key id")
	})

	t.Run("export-info has no material", func(t *testing.T) {
		out, err := run(t, "keysets", "export-info", "app-secrets")
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(out, `"family"`))
		assert.Assert(t, !strings.Contains(out, `"material"`))
	})

	t.Run("export includes material", func(t *testing.T) {
		out, err := run(t, "keysets", "export", "app-secrets")
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(out, `"material"`))
	})

	t.Run("remove", func(t *testing.T) {
		out, err := run(t, "keysets", "remove", "app-secrets", "--force")
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(out, `Deleted keyset "app-secrets"`))

		_, err = run(t, "keysets", "keys", "app-secrets")
		assert.ErrorContains(t, err, "not found")
	})
}

func TestVersionCmd(t *testing.T) {
	cli, buf := newTestCLI(t)
	err := runCommand(t, cli, "version")
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(buf.String(), "0.1.0"))
}
