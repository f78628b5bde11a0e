// Package llmjson extracts structured JSON from free-form model output.
//
// Models wrap JSON in code fences, prefix it with prose, or emit almost-JSON
// with trailing commas. Extract tries a fixed sequence of strategies and
// returns the first candidate that is syntactically valid.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is wrapped by every ParseError.
var ErrNoJSON = errors.New("no valid JSON found in model output")

// ParseError reports that no strategy produced valid JSON.
type ParseError struct {
	Input    string
	Attempts []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llmjson: %s (tried %s)", ErrNoJSON.Error(), strings.Join(e.Attempts, ", "))
}

func (e *ParseError) Unwrap() error { return ErrNoJSON }

// Strategy names, in the order they are attempted.
const (
	StrategyLabeledFence = "labeled_fence"
	StrategyGenericFence = "generic_fence"
	StrategyBracketed    = "bracketed"
	StrategyWhole        = "whole_text"
)

var (
	labeledFence = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	genericFence = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	languageTag  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+-]*\s*\n`)
)

type candidate struct {
	strategy string
	text     string
}

func candidates(text string) []candidate {
	var out []candidate
	if m := labeledFence.FindStringSubmatch(text); m != nil {
		out = append(out, candidate{StrategyLabeledFence, m[1]})
	}
	if m := genericFence.FindStringSubmatch(text); m != nil {
		body := strings.TrimSpace(m[1])
		body = languageTag.ReplaceAllString(body, "")
		body = strings.TrimPrefix(body, "json")
		out = append(out, candidate{StrategyGenericFence, body})
	}
	if b, ok := bracketed(text); ok {
		out = append(out, candidate{StrategyBracketed, b})
	}
	out = append(out, candidate{StrategyWhole, text})
	return out
}

// bracketed returns the span from the first opening bracket to the last
// matching closing bracket. Whichever of '[' or '{' appears first wins.
func bracketed(text string) (string, bool) {
	arr := strings.IndexByte(text, '[')
	obj := strings.IndexByte(text, '{')

	open, closeCh := arr, byte(']')
	if arr < 0 || (obj >= 0 && obj < arr) {
		open, closeCh = obj, '}'
	}
	if open < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, closeCh)
	if end <= open {
		return "", false
	}
	return text[open : end+1], true
}

// Extract returns the first syntactically valid JSON value found in text.
func Extract(text string) (json.RawMessage, error) {
	pe := &ParseError{Input: text}
	for _, c := range candidates(text) {
		pe.Attempts = append(pe.Attempts, c.strategy)
		if raw, ok := validate(c.text); ok {
			return raw, nil
		}
	}
	return nil, pe
}

// ExtractValue is Extract followed by decoding into a generic value.
func ExtractValue(text string) (any, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("llmjson: decode: %w", err)
	}
	return v, nil
}

// ExtractInto decodes the extracted JSON into dst.
func ExtractInto(text string, dst any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("llmjson: decode: %w", err)
	}
	return nil
}

func validate(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s), true
	}
	// only structured candidates are worth repairing; prose would be turned
	// into a JSON string.
	if s[0] != '[' && s[0] != '{' {
		return nil, false
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil || !json.Valid([]byte(repaired)) {
		return nil, false
	}
	return json.RawMessage(repaired), true
}
