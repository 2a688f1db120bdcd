package flow

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"grimm.is/nirs/internal/logging"
	"grimm.is/nirs/internal/network"
)

// Manifest maps a dataset's CSV headers onto the canonical flow schema.
// Research corpora rarely agree on column names (NB15 uses srcip/sport/
// Stime), so the loader is driven by a small YAML manifest instead of
// per-dataset code.
type Manifest struct {
	Name          string            `yaml:"name"`
	Columns       map[string]string `yaml:"columns"`        // canonical name -> CSV header
	TimestampUnit string            `yaml:"timestamp_unit"` // "s" or "ms"
	LabelFixes    map[string]string `yaml:"label_fixes"`
}

// canonical column names the loader understands.
var canonicalColumns = []string{
	"src_ip", "dst_ip", "src_port", "dst_port", "protocol",
	"timestamp", "src_data", "dst_data", "label", "type",
}

// NB15Manifest returns the built-in manifest for the UNSW-NB15 corpus.
func NB15Manifest() *Manifest {
	return &Manifest{
		Name: "nb15",
		Columns: map[string]string{
			"src_ip":    "srcip",
			"dst_ip":    "dstip",
			"src_port":  "sport",
			"dst_port":  "dsport",
			"protocol":  "proto",
			"src_data":  "sbytes",
			"dst_data":  "dbytes",
			"timestamp": "Stime",
			"label":     "Label",
			"type":      "attack_cat",
		},
		TimestampUnit: "s",
		LabelFixes: map[string]string{
			"Backdoors": "Backdoor",
		},
	}
}

// LoadManifest reads a dataset manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks that the manifest covers the required columns.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest name is required")
	}
	required := []string{"src_ip", "dst_ip", "protocol", "timestamp"}
	for _, col := range required {
		if m.Columns[col] == "" {
			return fmt.Errorf("manifest is missing column mapping for %q", col)
		}
	}
	switch m.TimestampUnit {
	case "", "s", "ms":
	default:
		return fmt.Errorf("unknown timestamp_unit %q (want s or ms)", m.TimestampUnit)
	}
	return nil
}

// LoadCSV reads a dataset CSV through the manifest and returns a flow table
// sorted by timestamp with Idx assigned and InterSubnet computed.
func LoadCSV(path string, m *Manifest) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	table, err := readCSV(f, m)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return table, nil
}

func readCSV(r io.Reader, m *Manifest) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	// Resolve canonical column -> field position.
	pos := make(map[string]int, len(canonicalColumns))
	for canonical, csvName := range m.Columns {
		for i, h := range header {
			if strings.TrimSpace(h) == csvName {
				pos[canonical] = i
				break
			}
		}
	}
	for _, col := range []string{"src_ip", "dst_ip", "protocol", "timestamp"} {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("column %q (%s) not found in CSV header", m.Columns[col], col)
		}
	}

	logger := logging.WithComponent("dataset")

	var table Table
	var badPorts, badRows int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// The research corpora carry the occasional ragged row.
			badRows++
			continue
		}

		get := func(col string) string {
			i, ok := pos[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		ts, err := strconv.ParseFloat(get("timestamp"), 64)
		if err != nil {
			badRows++
			continue
		}
		if m.TimestampUnit != "ms" {
			ts *= 1000
		}

		fl := Flow{
			Timestamp: int64(ts),
			SrcIP:     get("src_ip"),
			DstIP:     get("dst_ip"),
			Protocol:  strings.ToLower(get("protocol")),
			NIDSPred:  -1,
		}

		var ok bool
		if fl.SrcPort, ok = coercePort(get("src_port")); !ok {
			badPorts++
		}
		if fl.DstPort, ok = coercePort(get("dst_port")); !ok {
			badPorts++
		}
		fl.SrcData, _ = strconv.ParseInt(get("src_data"), 10, 64)
		fl.DstData, _ = strconv.ParseInt(get("dst_data"), 10, 64)
		fl.Label, _ = strconv.Atoi(get("label"))

		attackType := get("type")
		if attackType == "" {
			attackType = "Normal"
		}
		if fix, ok := m.LabelFixes[attackType]; ok {
			attackType = fix
		}
		fl.AttackType = attackType

		fl.InterSubnet = network.IsInterSubnet(fl.SrcIP, fl.DstIP)

		table = append(table, fl)
	}

	if badPorts > 0 {
		logger.Warn("coerced unparseable ports to 0", "count", badPorts)
	}
	if badRows > 0 {
		logger.Warn("skipped malformed rows", "count", badRows)
	}

	table.SortByTimestamp()
	table.Reindex()
	return table, nil
}

// coercePort parses a port that may be decimal or hex-encoded ("0x20205321"
// appears in the NB15 corpus). A value that is not a 16-bit decimal is read
// as hex and keeps only its low 16 bits (0x20205321 becomes 0x5321); values
// that parse as neither become 0 and report false.
func coercePort(s string) (uint16, bool) {
	if s == "" || s == "-" {
		return 0, true
	}
	if v, err := strconv.ParseUint(s, 10, 16); err == nil {
		return uint16(v), true
	}
	hs := strings.TrimPrefix(strings.ToLower(s), "0x")
	if v, err := strconv.ParseUint(hs, 16, 64); err == nil {
		return uint16(v), true
	}
	return 0, false
}

// LoadPredictions reads a single-column CSV of per-flow NIDS scores and
// attaches them to the table by row order.
func LoadPredictions(path string, t Table) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open predictions: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read predictions header: %w", err)
	}
	col := 0
	for i, h := range header {
		if strings.TrimSpace(h) == "pred" {
			col = i
			break
		}
	}

	i := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read predictions row %d: %w", i, err)
		}
		if i >= len(t) {
			return fmt.Errorf("predictions file has more rows than flow table (%d)", len(t))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return fmt.Errorf("predictions row %d: %w", i, err)
		}
		t[i].NIDSPred = v
		i++
	}
	if i != len(t) {
		return fmt.Errorf("predictions file has %d rows, flow table has %d", i, len(t))
	}
	return nil
}
