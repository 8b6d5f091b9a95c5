package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	graphsDir    = filepath.Join("..", "..", "testdata", "graphs")
	pipelineFile = filepath.Join(graphsDir, "pipeline.yaml")
	poseFile     = filepath.Join(graphsDir, "pose.cue")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
	invalidDir   = filepath.Join("..", "..", "testdata", "invalid")
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "graphcfg", cmd.Use)
	assert.Contains(t, cmd.Long, "CUE")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"canonicalize", "validate", "inspect", "test", "watch", "schema", "history"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "warn", levelFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
		short   string
	}{
		{"canonicalize", "graph", "g"},
		{"canonicalize", "output", "o"},
		{"canonicalize", "db", ""},
		{"validate", "graph", "g"},
		{"validate", "side-packets", ""},
		{"validate", "db", ""},
		{"inspect", "graph", "g"},
		{"test", "update", ""},
		{"test", "filter", ""},
		{"watch", "debounce", ""},
		{"schema", "output", "o"},
		{"history", "db", ""},
		{"history", "graph", "g"},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tt.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.short, f.Shorthand)
		})
	}
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(t, "--format", "invalid", "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLogLevelValidation(t *testing.T) {
	_, _, err := execute(t, "--log-level", "trace", "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootOptionsLogger(t *testing.T) {
	tests := []struct {
		name    string
		opts    RootOptions
		debug   bool
		warning bool
	}{
		{"default", RootOptions{}, false, true},
		{"debug", RootOptions{LogLevel: "debug"}, true, true},
		{"error", RootOptions{LogLevel: "error"}, false, false},
		{"verbose overrides", RootOptions{LogLevel: "error", Verbose: true}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := tt.opts.Logger(buf)
			logger.Debug("debug message")
			logger.Warn("warn message")

			assert.Equal(t, tt.debug, bytes.Contains(buf.Bytes(), []byte("debug message")))
			assert.Equal(t, tt.warning, bytes.Contains(buf.Bytes(), []byte("warn message")))
		})
	}
}

func TestRootOptionsLoggerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := RootOptions{Format: "json"}
	opts.Logger(buf).Warn("graph rejected", "graph", "Unknown")

	assert.Contains(t, buf.String(), `"msg":"graph rejected"`)
	assert.Contains(t, buf.String(), `"graph":"Unknown"`)
}
