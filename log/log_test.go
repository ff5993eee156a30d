package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/lawyeredup/log"
)

type errStub string

type stateStub int

func (e errStub) Error() string { return string(e) }

func (s stateStub) String() string { return "Calling" }

func TestAttrs(t *testing.T) {
	assertAttrEqual(t, log.Flow("predict-risk"), "flow", "predict-risk")
	assertAttrEqual(t, log.State(stateStub(3)), "state", "Calling")
	assertAttrEqual(t, log.Kind("provider"), "kind", "provider")
	assertAttrEqual(t, log.Error(nil), "error", "")
	assertAttrEqual(t, log.Error(errStub("boom")), "error", "boom")
	assertAttrEqual(t, log.ErrorString("badness"), "error", "badness")
}

func TestParseLevel(t *testing.T) {
	lvl, err := log.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = log.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = log.ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := log.New(&buf, "warn", "json")
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", log.Flow("summarize-document"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "summarize-document", rec["flow"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l, err := log.New(&buf, "info", "text")
	require.NoError(t, err)
	l.Info("flow done", log.Flow("predict-risk"))
	assert.Contains(t, buf.String(), "flow done")
	assert.Contains(t, buf.String(), "predict-risk")

	_, err = log.New(&buf, "info", "xml")
	assert.Error(t, err)
}

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
