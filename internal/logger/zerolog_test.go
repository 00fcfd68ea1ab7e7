package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapterWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.InfoLevel)

	log.Info("LoadCoordinator", "stage finished", map[string]interface{}{"stage": "metadata"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "LoadCoordinator", entry["component"])
	require.Equal(t, "metadata", entry["stage"])
	require.Equal(t, "stage finished", entry["message"])
}

func TestZerologAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.WarnLevel)

	log.Debug("Test", "hidden", nil)
	log.Info("Test", "hidden", nil)
	require.Zero(t, buf.Len())

	log.Error("Test", errors.New("boom"), nil)
	require.Contains(t, buf.String(), "boom")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}
