package board

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/magiconair/properties"
)

// Property is a single build property. Present is false when the host
// reported the key without a string value (a JSON null, number or object).
type Property struct {
	Key     string
	Value   string
	Present bool
}

// BuildProperties is a flat key/value listing that keeps the order in which
// the host reported the keys. Lookups that take "the first match" rely on it.
type BuildProperties []Property

// Get returns the value of the first present property named key.
func (p BuildProperties) Get(key string) (string, bool) {
	for _, prop := range p {
		if prop.Key == key && prop.Present {
			return prop.Value, true
		}
	}
	return "", false
}

// Set replaces the value of key, or appends it when missing.
func (p *BuildProperties) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			(*p)[i].Present = true
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: value, Present: true})
}

// Keys returns the property keys in order.
func (p BuildProperties) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, prop := range p {
		keys = append(keys, prop.Key)
	}
	return keys
}

// UnmarshalJSON decodes a JSON object while preserving key order.
func (p *BuildProperties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read build properties: %w", err)
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("build properties must be a JSON object, got %v", tok)
	}

	props := BuildProperties{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read build property key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected build property key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("build property %q: %w", key, err)
		}

		prop := Property{Key: key}
		var value string
		if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &value) == nil {
			prop.Value = value
			prop.Present = true
		}
		props = append(props, prop)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close build properties object: %w", err)
	}

	*p = props
	return nil
}

// MarshalJSON encodes the properties as a JSON object in their stored order.
func (p BuildProperties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !prop.Present {
			buf.WriteString("null")
			continue
		}
		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// The properties lexer treats backslashes as escapes and ':' or blanks as key
// separators. Arduino listings are literal, so both are escaped first.
var (
	keyEscaper   = strings.NewReplacer(`\`, `\\`, ":", `\:`, " ", `\ `, "\t", `\t`, "!", `\!`)
	valueEscaper = strings.NewReplacer(`\`, `\\`)
)

// ParseProperties reads an Arduino style properties listing ("key=value" per
// line, as printed by `arduino-cli board details --show-properties`).
// Blank lines and lines starting with '#' are skipped. Lines without '=' are
// rejected so a wrong file is not silently accepted.
//
// Arduino values are literal: backslashes (Windows paths) and {placeholders}
// are kept as written.
func ParseProperties(r io.Reader) (BuildProperties, error) {
	var buf bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 || strings.TrimSpace(line[:idx]) == "" {
			return nil, fmt.Errorf("line %d: expected key=value, got %q", lineNum, line)
		}
		buf.WriteString(keyEscaper.Replace(strings.TrimSpace(line[:idx])))
		buf.WriteByte('=')
		buf.WriteString(valueEscaper.Replace(strings.TrimSpace(line[idx+1:])))
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}

	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	parsed, err := loader.LoadBytes(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}

	props := make(BuildProperties, 0, parsed.Len())
	for _, key := range parsed.Keys() {
		value, _ := parsed.Get(key)
		props = append(props, Property{Key: key, Value: value, Present: true})
	}
	return props, nil
}
