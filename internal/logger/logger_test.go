package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := New()
	require.NoError(t, l.Configure("debug", "json", "stdout", 0))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.WithComponent("pipeline").WithFields(Fields{"dataset": "gold"}).Info("done")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "done", entry["message"])
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, "gold", entry["dataset"])
	assert.Contains(t, entry, "timestamp")
}

func TestConfigure_EnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	l := New()
	require.NoError(t, l.Configure("debug", "text", "stderr", 0))
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
}

func TestConfigure_Invalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := New()
	assert.Error(t, l.Configure("loud", "text", "stdout", 0))
	assert.Error(t, l.Configure("info", "xml", "stdout", 0))
}

func TestConfigure_File(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "logs", "marketlens.log")
	l := New()
	require.NoError(t, l.Configure("info", "text", path, 0))
	l.WithComponent("test").Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
