package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/dshills/triage/internal/aggregate"
)

// SARIFWriter outputs Sonar issue and hotspot records in SARIF v2.1.0, for
// upload to GitHub code scanning and similar CI consumers. Comment and check
// records have no SARIF shape and are skipped.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, result *aggregate.Result) error {
	sarif := buildSARIF(result)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling SARIF")
	}
	_, err = w.Write(data)
	if err != nil {
		return errors.Wrap(err, "writing SARIF")
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	DefaultConfig sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func buildSARIF(result *aggregate.Result) sarifLog {
	// SARIF consumers expect arrays, so empty never marshals as null.
	results := []sarifResult{}
	rules := []sarifRule{}
	ruleSeen := make(map[string]bool)

	for _, item := range result.Items {
		if item.Kind != aggregate.KindIssue && item.Kind != aggregate.KindSecurityHotspot {
			continue
		}
		rule := item.Attributes["rule"]
		if rule == "" {
			rule = string(item.Kind)
		}
		level := sarifLevel(item.Attributes["severity"])
		if !ruleSeen[rule] {
			ruleSeen[rule] = true
			rules = append(rules, sarifRule{
				ID:            rule,
				Name:          rule,
				DefaultConfig: sarifDefaultConfig{Level: level},
			})
		}

		r := sarifResult{
			RuleID:  rule,
			Level:   level,
			Message: sarifMessage{Text: item.Attr("message")},
		}
		if component := item.Attributes["component"]; component != "" {
			line, _ := strconv.Atoi(item.Attributes["line"])
			if line == 0 {
				line = 1
			}
			r.Locations = []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: component},
					Region:           sarifRegion{StartLine: line},
				},
			}}
		}
		results = append(results, r)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "triage",
					Version:        "0.1.0",
					InformationURI: "https://github.com/dshills/triage",
					Rules:          rules,
				},
			},
			Results: results,
		}},
	}
}

func sarifLevel(severity string) string {
	switch severity {
	case "BLOCKER", "CRITICAL", "HIGH":
		return "error"
	case "MAJOR", "MEDIUM":
		return "warning"
	default:
		return "note"
	}
}
