package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

const nb15Sample = `srcip,sport,dstip,dsport,proto,sbytes,dbytes,Stime,attack_cat,Label
59.166.0.0,1390,149.171.126.6,53,udp,132,164,1421927414,,0
175.45.176.3,0x20205321,149.171.126.18,80,tcp,1064,608,1421927416,Exploits,1
59.166.0.9,33661,10.40.85.1,1024,tcp,5000,2000,1421927415, Backdoors ,1
fe80::1,80,10.0.0.1,80,tcp,10,10,1421927413,,0
`

func TestLoadCSVNB15(t *testing.T) {
	path := writeTemp(t, "nb15.csv", nb15Sample)

	table, err := LoadCSV(path, NB15Manifest())
	require.NoError(t, err)
	require.Len(t, table, 4)
	require.NoError(t, table.CheckSorted())

	// Sorted by timestamp: the IPv6 row comes first.
	first := table[0]
	assert.Equal(t, 0, first.Idx)
	assert.Equal(t, int64(1421927413000), first.Timestamp)
	assert.False(t, first.InterSubnet, "IPv6 endpoints never count as inter-subnet")

	second := table[1]
	assert.Equal(t, "59.166.0.0", second.SrcIP)
	assert.Equal(t, uint16(1390), second.SrcPort)
	assert.Equal(t, "udp", second.Protocol)
	assert.Equal(t, int64(132), second.SrcData)
	assert.Equal(t, "Normal", second.AttackType)
	assert.True(t, second.InterSubnet)
	assert.Equal(t, -1.0, second.NIDSPred)

	// "Backdoors" is normalised and whitespace stripped.
	third := table[2]
	assert.Equal(t, "Backdoor", third.AttackType)
	assert.Equal(t, 1, third.Label)

	// Hex-encoded port is coerced.
	fourth := table[3]
	assert.Equal(t, "Exploits", fourth.AttackType)
	assert.Equal(t, uint16(0x5321), fourth.SrcPort)
}

func TestLoadCSVMissingColumn(t *testing.T) {
	path := writeTemp(t, "bad.csv", "a,b,c\n1,2,3\n")
	_, err := LoadCSV(path, NB15Manifest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadManifest(t *testing.T) {
	src := `
name: custom
timestamp_unit: ms
columns:
  src_ip: source
  dst_ip: destination
  protocol: proto
  timestamp: ts
label_fixes:
  Worms: Worm
`
	path := writeTemp(t, "custom.yaml", src)
	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", m.Name)
	assert.Equal(t, "source", m.Columns["src_ip"])
	assert.Equal(t, "Worm", m.LabelFixes["Worms"])
}

func TestLoadManifestRejectsIncomplete(t *testing.T) {
	path := writeTemp(t, "incomplete.yaml", "name: x\ncolumns:\n  src_ip: a\n")
	_, err := LoadManifest(path)
	require.Error(t, err)
}

func TestCoercePort(t *testing.T) {
	tests := []struct {
		in       string
		expected uint16
		ok       bool
	}{
		{"80", 80, true},
		{"65535", 65535, true},
		{"0x000b", 0x000b, true},
		{"0x20205321", 0x5321, true},
		{"-", 0, true},
		{"", 0, true},
		{"http", 0, false},
	}
	for _, tc := range tests {
		got, ok := coercePort(tc.in)
		assert.Equal(t, tc.expected, got, "coercePort(%q)", tc.in)
		assert.Equal(t, tc.ok, ok, "coercePort(%q) ok", tc.in)
	}
}

func TestLoadPredictions(t *testing.T) {
	table := Table{{}, {}, {}}
	path := writeTemp(t, "pred.csv", "pred\n0.1\n0.5\n-1\n")

	require.NoError(t, LoadPredictions(path, table))
	assert.Equal(t, 0.1, table[0].NIDSPred)
	assert.Equal(t, -1.0, table[2].NIDSPred)

	short := writeTemp(t, "short.csv", "pred\n0.1\n")
	err := LoadPredictions(short, Table{{}, {}})
	require.Error(t, err)
}
