package sge

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

const reportHostTable = "qhost"

// Columns of a qhost row.
const (
	hNODE = iota
	hARCH
	hNCPU
	hLOAD
	hMEMTOT
	hMEMUSE
	hSWAPTO
	hSWAPUS
	hFIELDS
)

var sizeSuffixes = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'G': 1e9,
}

// NormalizeSize converts a qhost quantity such as "7.8G", "512M" or "-"
// into a plain number. "-" (not reported) is 0.
func NormalizeSize(s string) (float64, error) {
	if s == "" || s == "-" {
		return 0, nil
	}

	mult := 1.0
	if m, ok := sizeSuffixes[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return v * mult, nil
}

// ParseHostTable parses `qhost` output. The header, the rule below it and the
// "global" pseudo-host are skipped; every other row must have 8 columns.
func ParseHostTable(output string) ([]HostMetrics, error) {
	var hosts []HostMetrics
	scanner := bufio.NewScanner(strings.NewReader(output))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		fields := strings.Fields(line)

		if len(fields) == 0 || isRule(line) || fields[0] == "HOSTNAME" || fields[0] == "global" {
			continue
		}

		if len(fields) != hFIELDS {
			return nil, newParseError(reportHostTable, lineNum, line, fmt.Sprintf("expected %d columns, got %d", hFIELDS, len(fields)))
		}

		h := HostMetrics{Node: fields[hNODE], Arch: fields[hARCH]}
		targets := []struct {
			col int
			dst *float64
		}{
			{hNCPU, &h.Cores},
			{hLOAD, &h.Load},
			{hMEMTOT, &h.MaxMem},
			{hMEMUSE, &h.UsedMem},
			{hSWAPTO, &h.MaxSwap},
			{hSWAPUS, &h.UsedSwap},
		}
		for _, t := range targets {
			v, err := NormalizeSize(fields[t.col])
			if err != nil {
				return nil, newParseError(reportHostTable, lineNum, line, err.Error())
			}
			*t.dst = v
		}

		hosts = append(hosts, h)
	}

	if err := scanner.Err(); err != nil {
		return nil, newParseError(reportHostTable, lineNum, "", err.Error())
	}

	return hosts, nil
}
