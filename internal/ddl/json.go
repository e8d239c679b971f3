package ddl

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ddlSchema is the JSON Schema a table definition must satisfy before the
// structural checks in Validate run.
const ddlSchema = `{
  "type": "object",
  "required": ["table", "fields", "partition_key", "local_key"],
  "properties": {
    "table": {"type": "string", "minLength": 1},
    "fields": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"enum": ["varchar", "sint64", "double", "timestamp", "boolean"]},
          "nullable": {"type": "boolean"}
        }
      }
    },
    "partition_key": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "param": {"type": "string"},
          "quantum": {
            "type": "object",
            "required": ["field", "n", "unit"],
            "properties": {
              "field": {"type": "string", "minLength": 1},
              "n": {"type": "integer", "minimum": 1},
              "unit": {"enum": ["s", "m", "h", "d"]}
            }
          }
        }
      }
    },
    "local_key": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    }
  }
}`

type jsonField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

type jsonQuantum struct {
	Field string `json:"field"`
	N     int64  `json:"n"`
	Unit  string `json:"unit"`
}

type jsonKeyComponent struct {
	Param   string       `json:"param,omitempty"`
	Quantum *jsonQuantum `json:"quantum,omitempty"`
}

type jsonDDL struct {
	Table        string             `json:"table"`
	Fields       []jsonField        `json:"fields"`
	PartitionKey []jsonKeyComponent `json:"partition_key"`
	LocalKey     []string           `json:"local_key"`
}

var compiledSchema = gojsonschema.NewStringLoader(ddlSchema)

// FromJSON decodes and validates a table definition in JSON form. The JSON
// Schema check runs first so structural validation sees well-shaped input.
func FromJSON(data []byte) (*DDL, error) {
	result, err := gojsonschema.Validate(compiledSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("ddl schema check: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return nil, fmt.Errorf("invalid ddl: %s", errs[0].String())
		}
		return nil, fmt.Errorf("invalid ddl")
	}

	var jd jsonDDL
	if err := json.Unmarshal(data, &jd); err != nil {
		return nil, err
	}

	d := &DDL{
		Table:    jd.Table,
		LocalKey: jd.LocalKey,
	}
	for _, f := range jd.Fields {
		d.Fields = append(d.Fields, Field{Name: f.Name, Type: FieldType(f.Type), Nullable: f.Nullable})
	}
	for _, kc := range jd.PartitionKey {
		c := KeyComponent{Param: kc.Param}
		if kc.Quantum != nil {
			c.Quantum = &Quantum{
				Field: kc.Quantum.Field,
				N:     kc.Quantum.N,
				Unit:  QuantumUnit(kc.Quantum.Unit),
			}
		}
		d.PartitionKey = append(d.PartitionKey, c)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// ToJSON encodes a table definition for persistence and DESCRIBE output.
func (d *DDL) ToJSON() ([]byte, error) {
	jd := jsonDDL{
		Table:    d.Table,
		LocalKey: d.LocalKey,
	}
	for _, f := range d.Fields {
		jd.Fields = append(jd.Fields, jsonField{Name: f.Name, Type: string(f.Type), Nullable: f.Nullable})
	}
	for _, kc := range d.PartitionKey {
		jc := jsonKeyComponent{Param: kc.Param}
		if kc.Quantum != nil {
			jc.Quantum = &jsonQuantum{
				Field: kc.Quantum.Field,
				N:     kc.Quantum.N,
				Unit:  string(kc.Quantum.Unit),
			}
		}
		jd.PartitionKey = append(jd.PartitionKey, jc)
	}
	return json.Marshal(jd)
}
