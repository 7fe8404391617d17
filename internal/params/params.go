// Package params assembles the slurmdbd configuration parameters the
// toolkit maintains: the fixed operational set, the accounting
// database settings, and the merge of those layers with operator
// overrides into one parameter map keyed by configuration token.
package params

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"slurmdbdops/internal/dbdconf"
)

// DefaultDatabaseName is the accounting database slurmdbd records to.
const DefaultDatabaseName = "slurm_acct_db"

// Maintained returns the parameters the toolkit owns outright.
// Operator overrides never replace these; they are applied last during
// a merge. user becomes SlurmUser.
func Maintained(user string) map[dbdconf.Token]string {
	return map[dbdconf.Token]string{
		dbdconf.DbdPort:     "6819",
		dbdconf.AuthType:    "auth/munge",
		dbdconf.AuthInfo:    `"socket=/run/munge/munge.socket.2"`,
		dbdconf.SlurmUser:   user,
		dbdconf.PidFile:     "/run/slurmdbd.pid",
		dbdconf.LogFile:     "/var/log/slurm/slurmdbd.log",
		dbdconf.StorageType: "accounting_storage/mysql",
	}
}

// Merge combines parameter layers; later layers win on conflicts.
func Merge(layers ...map[dbdconf.Token]string) map[dbdconf.Token]string {
	merged := make(map[dbdconf.Token]string)
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}

// Database holds the accounting database settings handed to the
// toolkit when the backend database is created. Host and Port are
// empty when the database is reached over a unix socket.
type Database struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Name     string `json:"database" yaml:"database"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
}

// databaseSchema constrains a Database document: credentials and a
// database name are mandatory, host and port must come together, and
// the port carries the same digit-count laxity as the configuration
// file validator.
const databaseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "slurmdbd accounting database settings",
  "type": "object",
  "properties": {
    "username": {"type": "string", "minLength": 1},
    "password": {"type": "string", "minLength": 1},
    "database": {"type": "string", "minLength": 1},
    "host": {"type": "string", "minLength": 1},
    "port": {"type": "string", "pattern": "^[0-9]{1,5}$"}
  },
  "required": ["username", "password", "database"],
  "dependencies": {
    "host": ["port"],
    "port": ["host"]
  },
  "additionalProperties": false
}`

var compiledDatabaseSchema = mustCompileSchema("database.schema.json", databaseSchema)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(schema))); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// ParseDatabase decodes a database settings document, YAML or JSON. A
// missing database name defaults to DefaultDatabaseName; everything
// else is checked against the document schema before decoding, so
// unknown fields and missing credentials are rejected rather than
// silently dropped.
func ParseDatabase(data []byte) (*Database, error) {
	var instance map[string]any
	if err := yaml.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("parse database settings: %w", err)
	}
	if instance == nil {
		instance = map[string]any{}
	}
	if _, ok := instance["database"]; !ok {
		instance["database"] = DefaultDatabaseName
	}
	if err := compiledDatabaseSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("invalid database settings: %w", err)
	}

	var db Database
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("decode database settings: %w", err)
	}
	if db.Name == "" {
		db.Name = DefaultDatabaseName
	}
	return &db, nil
}

// Validate checks the settings against the database document schema.
func (d Database) Validate() error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal database settings: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode database settings: %w", err)
	}
	if err := compiledDatabaseSchema.Validate(instance); err != nil {
		return fmt.Errorf("invalid database settings: %w", err)
	}
	return nil
}

// Parameters maps the settings onto their configuration tokens. Empty
// fields produce no entry, so a socket-backed database contributes no
// StorageHost or StoragePort.
func (d Database) Parameters() map[dbdconf.Token]string {
	p := make(map[dbdconf.Token]string)
	if d.Username != "" {
		p[dbdconf.StorageUser] = d.Username
	}
	if d.Password != "" {
		p[dbdconf.StoragePass] = d.Password
	}
	if d.Name != "" {
		p[dbdconf.StorageLoc] = d.Name
	}
	if d.Host != "" {
		p[dbdconf.StorageHost] = d.Host
	}
	if d.Port != "" {
		p[dbdconf.StoragePort] = d.Port
	}
	return p
}
