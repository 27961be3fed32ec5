package maze

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTerminateToken ends a telemetry stream
const DefaultTerminateToken = "x"

// DefaultDistanceCM is assumed when an observation carries no distance
const DefaultDistanceCM = 30.0

// DefaultStatusPrefixes are the human-readable controller lines that carry no JSON
var DefaultStatusPrefixes = []string{"Started", "Writing", "Done", "Test", "Reset", "Intersection"}

// IngestOptions configures line classification
type IngestOptions struct {
	TerminateToken string
	StatusPrefixes []string
}

// DefaultIngestOptions returns the controller's defaults
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		TerminateToken: DefaultTerminateToken,
		StatusPrefixes: DefaultStatusPrefixes,
	}
}

// Message is the result of parsing one telemetry line. It is one of
// Terminate, Status, Finished, Observation or Malformed.
type Message interface {
	messageKind() string
}

// Terminate is the stream's end-of-session sentinel
type Terminate struct{}

// Status is a human-readable controller line
type Status struct {
	Text string
}

// Finished signals that the controller has finished mapping the labyrinth
type Finished struct{}

// Malformed is a line that could not be decoded
type Malformed struct {
	Line string
	Err  *ParseError
}

func (Terminate) messageKind() string   { return "terminate" }
func (Status) messageKind() string      { return "status" }
func (Finished) messageKind() string    { return "finished" }
func (Observation) messageKind() string { return "observation" }
func (Malformed) messageKind() string   { return "malformed" }

// MessageKind returns a short label for metrics and logs
func MessageKind(m Message) string {
	if m == nil {
		return "none"
	}
	return m.messageKind()
}

// wireObservation mirrors the controller's JSON; every field is optional and loosely typed
type wireObservation struct {
	NodeID            *string                    `json:"node_id"`
	PossibleWays      map[string]json.RawMessage `json:"possible_ways"`
	Distance          json.RawMessage            `json:"distance"`
	CurrentDirection  json.RawMessage            `json:"current_direction"`
	FinishedLabyrinth json.RawMessage            `json:"finishedLabyrinth"`
	Return            json.RawMessage            `json:"return"`
}

// ParseLine classifies and decodes one telemetry line. It never panics and
// never returns an error: decode failures come back as Malformed.
func ParseLine(line string, opts IngestOptions) Message {
	line = strings.TrimSpace(strings.TrimRight(line, "\r\n"))

	token := opts.TerminateToken
	if token == "" {
		token = DefaultTerminateToken
	}
	if line == token {
		return Terminate{}
	}

	prefixes := opts.StatusPrefixes
	if prefixes == nil {
		prefixes = DefaultStatusPrefixes
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(line, p) {
			return Status{Text: line}
		}
	}

	if line == "" {
		return Malformed{Line: line, Err: &ParseError{Line: line, Err: errors.New("empty line")}}
	}

	dec := json.NewDecoder(strings.NewReader(line))
	var wire wireObservation
	if err := dec.Decode(&wire); err != nil {
		return Malformed{Line: line, Err: &ParseError{Line: line, Err: err}}
	}
	if dec.More() {
		return Malformed{Line: line, Err: &ParseError{Line: line, Err: errors.New("trailing data after JSON object")}}
	}
	if line[0] != '{' {
		return Malformed{Line: line, Err: &ParseError{Line: line, Err: errors.New("not a JSON object")}}
	}

	if isTrue(wire.FinishedLabyrinth) {
		return Finished{}
	}

	obs := Observation{
		DistanceCM: DefaultDistanceCM,
		RawWays:    make(map[string]bool),
		ReceivedAt: time.Now(),
	}
	if wire.NodeID != nil && *wire.NodeID != "" {
		obs.NodeID = *wire.NodeID
		obs.HasNode = true
	}

	for key, raw := range wire.PossibleWays {
		open := isTrue(raw)
		switch strings.ToLower(key) {
		case "forward", "f":
			obs.Ways.Forward = obs.Ways.Forward || open
			obs.RawWays["forward"] = obs.Ways.Forward
		case "left", "l":
			obs.Ways.Left = obs.Ways.Left || open
			obs.RawWays["left"] = obs.Ways.Left
		case "right", "r":
			obs.Ways.Right = obs.Ways.Right || open
			obs.RawWays["right"] = obs.Ways.Right
		}
	}

	if d, ok := parseNumber(wire.Distance); ok && d >= 0 {
		obs.DistanceCM = d
	}

	if dir, ok := parseDirectionOverride(wire.CurrentDirection); ok {
		obs.Direction = dir
		obs.HasDirection = true
	}

	obs.Return = isTrue(wire.Return)

	return obs
}

// isTrue accepts true, non-zero numbers and the strings "true"/"1"
func isTrue(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f != 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.ToLower(strings.TrimSpace(s))
		return s == "true" || s == "1"
	}
	return false
}

// parseNumber accepts a JSON number or a numeric string such as "30.000000".
// Non-finite strings like "Inf" or "NaN" are not numbers here.
func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

// parseDirectionOverride accepts an integer or an integer string; anything else is no override
func parseDirectionOverride(raw json.RawMessage) (Direction, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Up, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return NormalizeDirection(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil {
			return NormalizeDirection(v), true
		}
	}
	return Up, false
}

// Describe renders a message for logs
func Describe(m Message) string {
	switch v := m.(type) {
	case Observation:
		node := v.NodeID
		if !v.HasNode {
			node = "-"
		}
		return fmt.Sprintf("node=%s ways={%s} distance=%.1f", node, v.Ways, v.DistanceCM)
	case Status:
		return "status: " + v.Text
	case Malformed:
		return v.Err.Error()
	default:
		return MessageKind(m)
	}
}
