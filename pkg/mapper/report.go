package mapper

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arm64lab/capmap/pkg/rangeset"
)

// jsonRange is a Range serialized as a pair of 0x-prefixed lowercase
// hex strings, per spec §6 ("Numeric fields are 0x-prefixed lowercase hex").
type jsonRange struct {
	Base string `json:"base"`
	Last string `json:"last"`
}

type jsonMapEntry struct {
	AddressSpace string      `json:"address-space"`
	Ranges       []jsonRange `json:"ranges"`
}

type jsonScan struct {
	Include []jsonRange `json:"include"`
	Exclude []jsonRange `json:"exclude"`
	Depth   string      `json:"depth"`
}

type jsonReport struct {
	Roots map[string]string       `json:"roots"`
	Scan  jsonScan                `json:"scan"`
	Maps  map[string]jsonMapEntry `json:"maps"`
}

type jsonEnvelope struct {
	Capmap jsonReport `json:"capmap"`
}

func hexAddr(a rangeset.Address) string {
	return fmt.Sprintf("0x%x", a)
}

func toJSONRanges(rs []rangeset.Range) []jsonRange {
	out := make([]jsonRange, 0, len(rs))

	for _, r := range rs {
		out = append(out, jsonRange{Base: hexAddr(r.Base()), Last: hexAddr(r.Last())})
	}

	return out
}

// WriteReport serializes the Mapper's current state as the single
// top-level "capmap" JSON object spec §4.6/§6 describes, to w. Purely
// a serializer: no decisions, stable enough for golden-file comparison
// but not a versioned wire format.
func (m *Mapper) WriteReport(w io.Writer) error {
	report := jsonReport{
		Roots: make(map[string]string, len(m.roots)),
		Scan: jsonScan{
			Include: toJSONRanges(m.include.Parts()),
			Exclude: toJSONRanges(m.excludeSelf.Parts()),
			Depth:   hexAddr(m.maxSeenScanDepth),
		},
		Maps: make(map[string]jsonMapEntry, len(m.maps)+1),
	}

	for _, nr := range m.roots {
		hi, lo := nr.Cap.Raw()
		report.Roots[nr.Name] = fmt.Sprintf("0x%016x%016x", hi, lo)
	}

	report.Maps[m.loadCapMap.Name()] = jsonMapEntry{
		AddressSpace: m.loadCapMap.AddressSpace(),
		Ranges:       toJSONRanges(m.loadCapMap.Ranges()),
	}

	for _, mp := range m.maps {
		report.Maps[mp.Name()] = jsonMapEntry{
			AddressSpace: mp.AddressSpace(),
			Ranges:       toJSONRanges(mp.Ranges()),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jsonEnvelope{Capmap: report})
}
