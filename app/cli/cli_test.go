package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `version: "1.0"
container:
  kind: project
  name: Research
  description: reading list
  color: "#3B82F6"
components:
  - component_type: note
    content: start here
    order_index: 0
  - component_type: divider
    order_index: 1
`

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
logging:
  level: error
cache:
  provider: memory
maintenance:
  enabled: false
export:
  directory: %s
`, filepath.Join(dir, "sidebar.db"), filepath.Join(dir, "exports"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "export", "import", "audit", "token"})
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestImportExportAudit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	docPath := filepath.Join(dir, "research.yaml")
	require.NoError(t, os.WriteFile(docPath, []byte(testDocument), 0o644))

	_, err := run(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "import", "--file", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, `imported project "Research" as container 1`)

	t.Run("ExportToStdout", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "export", "--container", "1", "--format", "json", "--out", "-")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "Research"`)
		assert.Contains(t, out, `"component_type": "note"`)
	})

	t.Run("ExportToDirectory", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "export", "--container", "1", "--format", "yml")
		require.NoError(t, err)
		assert.Contains(t, out, "exported container 1")

		files, err := filepath.Glob(filepath.Join(dir, "exports", "*.yaml"))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("ExportMissingContainer", func(t *testing.T) {
		_, err := run(t, "--config", cfgPath, "export", "--container", "99", "--out", "-")
		assert.Error(t, err)
	})

	t.Run("Audit", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "audit")
		require.NoError(t, err)
		assert.Contains(t, out, "checked: 1")
		assert.Contains(t, out, "inconsistent: []")
	})
}

func TestTokenCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	t.Setenv("AUTH_SECRET_KEY", "0123456789abcdef0123456789abcdef")

	out, err := run(t, "--config", cfgPath, "token", "--subject", "ops")
	require.NoError(t, err)
	assert.NotEmpty(t, bytes.TrimSpace([]byte(out)))

	_, err = run(t, "--config", cfgPath, "token")
	assert.Error(t, err)
}
