package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchFile(t *testing.T) {
	content := []byte(`
name: deploy
operations:
  - name: push config
    copy: to
    source: ./app.conf
    destination: /etc/app/app.conf
  - name: restart
    run: systemctl restart app
  - name: fetch log
    copy: from
    source: /var/log/app.log
    destination: ./app.log
`)

	b, err := Parse(content, "deploy.yaml")
	require.NoError(t, err)
	assert.Equal(t, "deploy", b.ID)
	require.Equal(t, 3, b.Len())

	ops := b.Operations()
	assert.Equal(t, TransferTo, ops[0].Kind)
	assert.Equal(t, "./app.conf", ops[0].Source)
	assert.Equal(t, "/etc/app/app.conf", ops[0].Destination)
	assert.Equal(t, "push config", ops[0].Label)

	assert.Equal(t, Command, ops[1].Kind)
	assert.Equal(t, "systemctl restart app", ops[1].Command)

	assert.Equal(t, TransferFrom, ops[2].Kind)
}

func TestParseBatchFileDefaultsID(t *testing.T) {
	b, err := Parse([]byte("operations:\n  - run: uptime\n"), "ops.yaml")
	require.NoError(t, err)
	assert.Equal(t, "ops.yaml", b.ID)
}

func TestParseBatchFileRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "operations: [",
			wantErr: "YAML",
		},
		{
			name:    "no operations",
			content: "name: empty\n",
			wantErr: "no operations",
		},
		{
			name:    "both run and copy",
			content: "operations:\n  - run: x\n    copy: to\n",
			wantErr: "both",
		},
		{
			name:    "neither run nor copy",
			content: "operations:\n  - name: mystery\n",
			wantErr: "neither",
		},
		{
			name:    "bad direction",
			content: "operations:\n  - copy: sideways\n    source: a\n    destination: b\n",
			wantErr: "direction",
		},
		{
			name:    "transfer missing destination",
			content: "operations:\n  - copy: to\n    source: a\n",
			wantErr: "source or destination",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "bad.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("operations:\n  - run: uptime\n"), 0o644))

	b, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	b := New("x")
	assert.Error(t, b.Validate(), "empty batch")

	b.AddCommand("", "")
	assert.Error(t, b.Validate(), "empty command")

	b = New("y")
	b.AddTransfer("", TransferTo, "src", "")
	assert.Error(t, b.Validate(), "missing destination")

	b = New("z")
	b.AddCommand("ok", "uptime")
	b.AddTransfer("push", TransferTo, "a", "b")
	assert.NoError(t, b.Validate())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "restart", Operation{Kind: Command, Command: "systemctl restart app", Label: "restart"}.Describe())
	assert.Equal(t, "systemctl restart app", Operation{Kind: Command, Command: "systemctl restart app"}.Describe())
	assert.Equal(t, "transfer-to a -> b", Operation{Kind: TransferTo, Source: "a", Destination: "b"}.Describe())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "command", Command.String())
	assert.Equal(t, "transfer-to", TransferTo.String())
	assert.Equal(t, "transfer-from", TransferFrom.String())
}
