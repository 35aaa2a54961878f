// Package definitions implements the table definition operations: preview,
// create, list, get, update and delete.
package definitions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tabledef/internal/shorthand"
	"github.com/JonMunkholm/tabledef/internal/store"
)

// Store is the persistence the service needs.
type Store interface {
	Insert(ctx context.Context, n store.NewTableDefinition) (*store.TableDefinition, error)
	List(ctx context.Context) ([]store.TableDefinition, error)
	Get(ctx context.Context, id int64) (*store.TableDefinition, error)
	Update(ctx context.Context, id int64, p store.Patch) (*store.TableDefinition, error)
	Delete(ctx context.Context, id int64) (*store.TableDefinition, error)
}

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

// Service compiles shorthand definitions and persists the results.
type Service struct {
	store Store
}

// NewService creates a service backed by s.
func NewService(s Store) *Service {
	return &Service{store: s}
}

// PreviewInput is the input to Preview.
type PreviewInput struct {
	TableName           string `json:"table_name"`
	ShorthandDefinition string `json:"shorthand_definition"`
	Grammar             string `json:"grammar,omitempty"`
}

// PreviewResult echoes the inputs together with the generated statement.
type PreviewResult struct {
	TableName           string `json:"table_name"`
	ShorthandDefinition string `json:"shorthand_definition"`
	GeneratedSQL        string `json:"generated_sql"`
}

// Preview compiles without persisting anything.
func (s *Service) Preview(in PreviewInput) (*PreviewResult, error) {
	if err := requireName("table_name", in.TableName); err != nil {
		return nil, err
	}
	sql, err := compile(in.TableName, in.ShorthandDefinition, in.Grammar)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		TableName:           in.TableName,
		ShorthandDefinition: in.ShorthandDefinition,
		GeneratedSQL:        sql,
	}, nil
}

// CreateInput is the input to Create.
type CreateInput struct {
	Name                string `json:"name"`
	ShorthandDefinition string `json:"shorthand_definition"`
	Grammar             string `json:"grammar,omitempty"`
}

// Create compiles the definition and stores it. Nothing is stored when
// compilation fails or the definition has no columns.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.TableDefinition, error) {
	if err := requireName("name", in.Name); err != nil {
		return nil, err
	}
	sql, err := compile(in.Name, in.ShorthandDefinition, in.Grammar)
	if err != nil {
		return nil, err
	}
	return s.store.Insert(ctx, store.NewTableDefinition{
		Name:                in.Name,
		ShorthandDefinition: in.ShorthandDefinition,
		GeneratedSQL:        sql,
	})
}

// List returns every stored definition in insertion order.
func (s *Service) List(ctx context.Context) ([]store.TableDefinition, error) {
	return s.store.List(ctx)
}

// Get returns the definition with the given id, or nil if there is none.
func (s *Service) Get(ctx context.Context, id int64) (*store.TableDefinition, error) {
	return s.store.Get(ctx, id)
}

// UpdateInput is the input to Update. Nil fields are not changed.
type UpdateInput struct {
	ID                  int64   `json:"id"`
	Name                *string `json:"name,omitempty"`
	ShorthandDefinition *string `json:"shorthand_definition,omitempty"`
	Grammar             string  `json:"grammar,omitempty"`
}

// Update changes the name and/or shorthand of a stored definition and
// returns the result, or nil if there is no such definition.
//
// The statement is recompiled whenever a shorthand value is supplied, using
// the new name if one is supplied too. A name-only update leaves the stored
// statement as it was.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*store.TableDefinition, error) {
	if in.Name != nil {
		if err := requireName("name", *in.Name); err != nil {
			return nil, err
		}
	}

	existing, err := s.store.Get(ctx, in.ID)
	if err != nil || existing == nil {
		return nil, err
	}
	if in.Name == nil && in.ShorthandDefinition == nil {
		return existing, nil
	}

	patch := store.Patch{Name: in.Name}
	if in.ShorthandDefinition != nil {
		name := existing.Name
		if in.Name != nil {
			name = *in.Name
		}
		sql, err := compile(name, *in.ShorthandDefinition, in.Grammar)
		if err != nil {
			return nil, err
		}
		patch.ShorthandDefinition = in.ShorthandDefinition
		patch.GeneratedSQL = &sql
	}
	return s.store.Update(ctx, in.ID, patch)
}

// Delete removes a definition and returns it, or nil if there was none.
func (s *Service) Delete(ctx context.Context, id int64) (*store.TableDefinition, error) {
	return s.store.Delete(ctx, id)
}

// Health reports service status.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthcheck returns an ok status stamped with the current time.
func (s *Service) Healthcheck() Health {
	return Health{Status: "ok", Timestamp: time.Now().UTC()}
}

func requireName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: field, Msg: "Table name is required"}
	}
	return nil
}

// compile rejects a definition without any column segments regardless of
// grammar; only the compiler itself falls back to an id-only table.
func compile(table, text, grammar string) (string, error) {
	g, err := shorthand.ParseGrammar(grammar)
	if err != nil {
		return "", &ValidationError{Field: "grammar", Msg: err.Error()}
	}
	if len(shorthand.Split(text, g)) == 0 {
		return "", fmt.Errorf("compile %s: %w", table, &shorthand.Error{
			Kind: shorthand.ErrEmptyDefinition,
			Msg:  shorthand.ErrEmptyDefinition.Error(),
		})
	}
	sql, err := shorthand.CompileWith(table, text, g)
	if err != nil {
		return "", fmt.Errorf("compile %s: %w", table, err)
	}
	return sql, nil
}
