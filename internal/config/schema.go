package config

// file: internal/config/schema.go

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "https://walletbridge.local/config.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	errSchema      error
)

// ErrInvalidDocument marks a config document that fails schema validation.
var ErrInvalidDocument = errors.New("config document does not match schema")

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			errSchema = errors.Wrap(err, "failed to add embedded config schema")
			return
		}
		compiledSchema, errSchema = compiler.Compile(schemaURL)
		if errSchema != nil {
			errSchema = errors.Wrap(errSchema, "failed to compile embedded config schema")
		}
	})
	return compiledSchema, errSchema
}

// validateDocument checks the raw YAML against the embedded schema before it
// is merged with defaults, so unknown keys and wrong types are reported.
func validateDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "failed to parse config YAML")
	}
	if doc == nil {
		return nil
	}

	instance, err := toJSONValue(doc)
	if err != nil {
		return err
	}
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	if err := schema.Validate(instance); err != nil {
		var valErr *jsonschema.ValidationError
		if errors.As(err, &valErr) {
			return errors.Wrap(ErrInvalidDocument, describe(valErr))
		}
		return errors.Wrap(err, "config schema validation failed unexpectedly")
	}
	return nil
}

// toJSONValue round-trips a YAML value through encoding/json so the
// validator sees the same types it would for a JSON document.
func toJSONValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "config YAML cannot be represented as JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to decode config as JSON")
	}
	return out, nil
}

// describe flattens the leaf causes into "location: message" lines.
func describe(valErr *jsonschema.ValidationError) string {
	out := valErr.BasicOutput()
	var parts []string
	for _, e := range out.Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", loc, e.Error))
	}
	if len(parts) == 0 {
		return valErr.Message
	}
	return strings.Join(parts, "; ")
}

// suggestNetwork returns the closest supported network name to s, or "" if
// nothing is close enough.
func suggestNetwork(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	best, bestDist := "", 3
	for _, n := range session.KnownNetworks {
		if !n.Supported() {
			continue
		}
		if d := levenshtein.ComputeDistance(s, string(n)); d < bestDist {
			best, bestDist = string(n), d
		}
	}
	return best
}
