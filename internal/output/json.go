package output

import (
	"encoding/json"

	"migplan/internal/diff"
	"migplan/internal/migration"
)

type jsonFormatter struct{}

type changeSummary struct {
	New          int `json:"new"`
	Deleted      int `json:"deleted"`
	Edited       int `json:"edited"`
	ArrayChanged int `json:"arrayChanged"`
}

type changeEntry struct {
	Kind      diff.Kind  `json:"kind"`
	Scope     diff.Scope `json:"scope"`
	Path      []string   `json:"path"`
	Table     string     `json:"table"`
	Column    string     `json:"column,omitempty"`
	Attribute []string   `json:"attribute,omitempty"`
	Index     string     `json:"index,omitempty"`
	From      any        `json:"from,omitempty"`
	To        any        `json:"to,omitempty"`
}

type changesPayload struct {
	Format  string        `json:"format"`
	Summary changeSummary `json:"summary"`
	Changes []changeEntry `json:"changes,omitempty"`
}

type artifactSummary struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

type artifactPayload struct {
	Format  string              `json:"format"`
	Info    migration.Info      `json:"info"`
	Summary artifactSummary     `json:"summary"`
	Actions []string            `json:"actions,omitempty"`
	Up      []migration.Command `json:"up"`
	Down    []migration.Command `json:"down"`
}

type Payload interface {
	changesPayload | artifactPayload
}

func (jsonFormatter) FormatChanges(changes []diff.Change) (string, error) {
	payload := changesPayload{Format: string(FormatJSON)}
	for _, ch := range changes {
		entry := changeEntry{
			Kind:      ch.Kind,
			Scope:     ch.Scope,
			Path:      ch.Path,
			Table:     ch.Table,
			Column:    ch.Column,
			Attribute: ch.Attribute,
			Index:     ch.Index,
		}
		if hasValues(ch) {
			entry.From, entry.To = ch.Lhs, ch.Rhs
		}
		payload.Changes = append(payload.Changes, entry)

		switch ch.Kind {
		case diff.New:
			payload.Summary.New++
		case diff.Deleted:
			payload.Summary.Deleted++
		case diff.Edited:
			payload.Summary.Edited++
		case diff.ArrayChanged:
			payload.Summary.ArrayChanged++
		}
	}
	return marshalJSON(payload)
}

func (jsonFormatter) FormatArtifact(a *migration.Artifact) (string, error) {
	payload := artifactPayload{Format: string(FormatJSON), Up: []migration.Command{}, Down: []migration.Command{}}
	if a != nil {
		payload.Info = a.Info
		payload.Actions = a.Summary
		if a.Up != nil {
			payload.Up = a.Up
		}
		if a.Down != nil {
			payload.Down = a.Down
		}
		payload.Summary = artifactSummary{Up: len(a.Up), Down: len(a.Down)}
	}
	return marshalJSON(payload)
}

func marshalJSON[T Payload](payload T) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
