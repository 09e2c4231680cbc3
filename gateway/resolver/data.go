package resolver

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Data is the fixture file backing the gateway resolvers.
//
//	collections:
//	  messages:
//	    - {id: "1", text: hello}
//	fields:
//	  Query.message: {from: messages, match: {id: id}, single: true}
//	  Query.messages: {from: messages}
//	  Query.version: {value: "1.0"}
//	  Mutation.addMessage: {echo: input}
type Data struct {
	Collections map[string][]map[string]any `yaml:"collections"`
	Fields      map[string]Field            `yaml:"fields"`
}

// Field describes how one Type.field resolves.
type Field struct {
	// Value is returned as is.
	Value any `yaml:"value"`
	// From names a collection to return.
	From string `yaml:"from"`
	// Match maps argument names to item keys. Items are kept when every present argument matches.
	Match map[string]string `yaml:"match"`
	// Single returns the first matching item instead of the list.
	Single bool `yaml:"single"`
	// Echo returns the named argument.
	Echo string `yaml:"echo"`
}

// LoadData reads a fixture file. An empty path yields empty data.
func LoadData(path string) (*Data, error) {
	if path == "" {
		return &Data{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read data file %s", path)
	}
	return DecodeData(raw)
}

func DecodeData(raw []byte) (*Data, error) {
	data := &Data{}
	if err := yaml.Unmarshal(raw, data); err != nil {
		return nil, errors.Wrap(err, "failed to decode data file")
	}
	for key, f := range data.Fields {
		if f.From != "" {
			if _, ok := data.Collections[f.From]; !ok {
				return nil, errors.Errorf("field %s refers to unknown collection %q", key, f.From)
			}
		}
	}
	return data, nil
}
