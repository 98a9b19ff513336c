package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunHex(t *testing.T) {
	code, out, _ := invoke(t, "-type", "BCCH-BCH-Message", "-hex", "59 51 bc")
	require.Equal(t, 0, code)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "BCCH-BCH-Message", record["type"])
	mib := record["value"].(map[string]any)["message"].(map[string]any)["mib"].(map[string]any)
	assert.Equal(t, "101100", mib["systemFrameNumber"])
	assert.Equal(t, 5.0, mib["ssb-SubcarrierOffset"])
}

func TestRunFileWithFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdus.txt")
	require.NoError(t, os.WriteFile(path, []byte("# two good, one truncated\n5951bc\n5951\n5951bc\n"), 0o600))
	conf := filepath.Join(dir, "uperc.toml")
	require.NoError(t, os.WriteFile(conf, []byte("[log]\nformat = \"json\"\n[codec]\nbatch_workers = 2\n"), 0o600))

	code, out, logs := invoke(t, "-config", conf, "-type", "BCCH-BCH-Message", "-file", path)
	assert.Equal(t, 1, code)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	var failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Equal(t, 1.0, failed["index"])
	assert.Contains(t, failed["error"], "buffer overrun")
	assert.Nil(t, failed["value"])
	assert.Contains(t, logs, "pdu discarded")
}

func TestRunYAML(t *testing.T) {
	code, out, _ := invoke(t, "-type", "UL-Message@15", "-hex", "800380d580", "-output", "yaml")
	require.Equal(t, 0, code)

	var records []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"unrecognized": 2, "raw": "80d580"}, records[0]["value"])
}

func TestRunUsageErrors(t *testing.T) {
	test := func(name string, args ...string) {
		t.Run(name, func(t *testing.T) {
			code, _, _ := invoke(t, args...)
			assert.NotEqual(t, 0, code)
		})
	}
	test("no type", "-hex", "00")
	test("no input", "-type", "MIB")
	test("both inputs", "-type", "MIB", "-hex", "00", "-file", "x")
	test("bad hex", "-type", "MIB", "-hex", "0g")
	test("unknown type", "-type", "RRCSetup", "-hex", "00")
	test("bad output", "-type", "MIB", "-hex", "00", "-output", "xml")
	test("missing config", "-config", "/nonexistent/uperc.toml", "-type", "MIB", "-hex", "00")
	test("bad flag", "-verbose")
}

func TestRunList(t *testing.T) {
	code, out, _ := invoke(t, "-list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "MeasResultNR\n")
	assert.Contains(t, out, "UL-Message")
}
