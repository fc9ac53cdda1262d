package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	reviewScene    = "../../testdata/scenes/review.cue"
	recordingScene = "../../testdata/scenes/recording.cue"
	scenariosDir   = "../../testdata/scenarios"
)

// execute runs cmd with args and returns what it wrote to stdout and
// stderr.
func execute(cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFile writes content to name under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// decodeResponse decodes a JSON envelope whose data has type T.
func decodeResponse[T any](t *testing.T, out string) (string, T, *CLIError) {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   T         `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp.Status, resp.Data, resp.Error
}

// feedbackScene has two browsers writing into one shared proxy.
const feedbackScene = `
sequence: a: {class: "Scalar", items: [{at: 0, content: {value: 1}}]}
sequence: b: {class: "Scalar", items: [{at: 0, content: {value: 2}}]}
browser: left: {master: "a", synchronized: a: {proxy: "Probe", save_changes: true}}
browser: right: {master: "b", synchronized: b: {proxy: "Probe", save_changes: true}}
`
