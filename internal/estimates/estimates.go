// Package estimates loads the probability time series produced by the
// reasoning agent. The transform is purely structural: series whose
// name ends in a player color are routed to that player, everything
// else is team-wide.
package estimates

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tomcat-viz/trialviz/internal/model"
)

// TimeSeries is one named estimator output: Values[i][t] is series i's
// value at tick t, Labels[i] its display label.
type TimeSeries struct {
	Name   string      `json:"name"`
	Values [][]float64 `json:"values"`
	Labels []string    `json:"labels"`
}

// Cardinality is the number of parallel series under this name.
func (s *TimeSeries) Cardinality() int { return len(s.Values) }

// Size is the number of ticks covered.
func (s *TimeSeries) Size() int {
	if len(s.Values) == 0 {
		return 0
	}
	return len(s.Values[0])
}

// Estimates partitions the estimator outputs by audience.
type Estimates struct {
	PlayerSeries [model.NumPlayers][]TimeSeries `json:"playerSeries"`
	TeamSeries   []TimeSeries                   `json:"teamSeries"`
}

type estimatesFile struct {
	Estimation struct {
		Agent struct {
			Estimators []struct {
				NodeLabel  string   `json:"node_label"`
				Categories []string `json:"categories"`
				Executions []struct {
					Estimates []string `json:"estimates"`
				} `json:"executions"`
			} `json:"estimators"`
		} `json:"agent"`
	} `json:"estimation"`
}

// Load reads an estimates dump from disk.
func Load(path string) (*Estimates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening estimates file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes an estimates JSON document. Only the first execution of
// each estimator is used; files should carry one trial each.
func Parse(r io.Reader) (*Estimates, error) {
	var file estimatesFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding estimates: %w", err)
	}

	out := &Estimates{}
	for _, estimator := range file.Estimation.Agent.Estimators {
		if len(estimator.Executions) == 0 {
			return nil, fmt.Errorf("estimator %q has no executions", estimator.NodeLabel)
		}

		raw := estimator.Executions[0].Estimates
		values := make([][]float64, 0, len(raw))
		for _, line := range raw {
			// Each entry is one whitespace-separated vector; anything
			// past the first newline belongs to a later trial.
			head, _, _ := strings.Cut(line, "\n")
			fields := strings.Fields(head)
			row := make([]float64, 0, len(fields))
			for _, field := range fields {
				v, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("estimator %q: parsing value %q: %w", estimator.NodeLabel, field, err)
				}
				row = append(row, v)
			}
			values = append(values, row)
		}

		labels := estimator.Categories
		if labels != nil && len(labels) != len(values) {
			return nil, fmt.Errorf("estimator %q: %d categories for %d series", estimator.NodeLabel, len(labels), len(values))
		}
		if labels == nil {
			labels = make([]string, len(values))
			for i := range labels {
				labels[i] = strconv.Itoa(i)
			}
		}

		terms := strings.Split(estimator.NodeLabel, "_")
		suffix := strings.ToLower(terms[len(terms)-1])
		if color, err := model.ParsePlayerColor(suffix); err == nil {
			// The color suffix routes the series; it is dropped from
			// the display name.
			series := TimeSeries{
				Name:   strings.Join(terms[:len(terms)-1], " "),
				Values: values,
				Labels: labels,
			}
			out.PlayerSeries[color] = append(out.PlayerSeries[color], series)
		} else {
			series := TimeSeries{
				Name:   strings.Join(terms, " "),
				Values: values,
				Labels: labels,
			}
			out.TeamSeries = append(out.TeamSeries, series)
		}
	}

	return out, nil
}
