// Package formstate wires the form engine packages into ready-to-use editing
// sessions built from declarative definitions.
package formstate

import (
	"errors"
	"io/fs"
	"os"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/session"
)

// Store aliases schema.Store so callers can hold loaded definitions without
// importing the schema package.
type Store = schema.Store

// Blueprint aliases schema.Blueprint.
type Blueprint = schema.Blueprint

// Session aliases session.Session.
type Session = session.Session

// ErrNilBlueprint is returned by NewSession when no blueprint is supplied.
var ErrNilBlueprint = errors.New("formstate: blueprint required")

// LoadDefinitions loads every YAML or JSON definition found in fsys.
func LoadDefinitions(fsys fs.FS) (*Store, error) {
	return schema.LoadFS(fsys)
}

// LoadDefinitionsDir loads the definitions stored under dir.
func LoadDefinitionsDir(dir string) (*Store, error) {
	return schema.LoadFS(os.DirFS(dir))
}

// NewSession starts an editing session over bp. The blueprint's rules, steps
// and payload options are applied before options, so callers can append more
// of each.
func NewSession(bp *Blueprint, options ...session.Option) (*Session, error) {
	if bp == nil || bp.Record == nil {
		return nil, ErrNilBlueprint
	}
	opts := []session.Option{
		session.WithBindings(bp.Bindings...),
		session.WithSteps(bp.Steps...),
		session.WithPayloadOptions(bp.Payload...),
	}
	return session.New(bp.Record, append(opts, options...)...)
}

// Open builds form id from store and starts a session over it.
func Open(store *Store, id string, options ...session.Option) (*Session, error) {
	bp, err := store.Build(id)
	if err != nil {
		return nil, err
	}
	return NewSession(bp, options...)
}
