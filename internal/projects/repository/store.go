// Package repository persists projects. Every implementation honours the same
// contract: Update only succeeds when the stored status still equals the
// status the caller last observed.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

// Store is the project persistence contract.
type Store interface {
	// Create persists a new project. The id must be set by the caller.
	Create(ctx context.Context, p *domain.Project) (*domain.Project, error)
	// Get returns domain.ErrNotFound when no project has the id.
	Get(ctx context.Context, id string) (*domain.Project, error)
	// Update applies patch if the stored status equals expected, and returns
	// domain.ErrStaleState otherwise.
	Update(ctx context.Context, id string, expected domain.Status, patch domain.Patch) (*domain.Project, error)
	// List returns all projects, newest first.
	List(ctx context.Context) ([]*domain.Project, error)
	// Claim touches updated_at when the project is still in status expected and
	// was last written at or before staleBefore. It reports false when another
	// writer got there first, so at most one caller wins a stale project.
	Claim(ctx context.Context, id string, expected domain.Status, staleBefore time.Time) (bool, error)
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// jsonColumns is the encoded form of a project's list fields, shared by the
// SQL stores.
type jsonColumns struct {
	History             []byte
	PendingRequirements []byte
	Requirements        []byte
	PendingCode         []byte
	GeneratedCode       []byte
}

func encodeColumns(p *domain.Project) (jsonColumns, error) {
	var c jsonColumns
	var err error
	if c.History, err = marshalNullable(p.ConversationHistory); err != nil {
		return c, err
	}
	if c.PendingRequirements, err = marshalNullable(p.PendingRequirements); err != nil {
		return c, err
	}
	if c.Requirements, err = marshalNullable(p.Requirements); err != nil {
		return c, err
	}
	if c.PendingCode, err = marshalNullable(p.PendingCode); err != nil {
		return c, err
	}
	if c.GeneratedCode, err = marshalNullable(p.GeneratedCode); err != nil {
		return c, err
	}
	return c, nil
}

func (c jsonColumns) decodeInto(p *domain.Project) error {
	if err := unmarshalNullable(c.History, &p.ConversationHistory); err != nil {
		return fmt.Errorf("conversation_history: %w", err)
	}
	if err := unmarshalNullable(c.PendingRequirements, &p.PendingRequirements); err != nil {
		return fmt.Errorf("pending_requirements: %w", err)
	}
	if err := unmarshalNullable(c.Requirements, &p.Requirements); err != nil {
		return fmt.Errorf("requirements: %w", err)
	}
	if err := unmarshalNullable(c.PendingCode, &p.PendingCode); err != nil {
		return fmt.Errorf("pending_code: %w", err)
	}
	if err := unmarshalNullable(c.GeneratedCode, &p.GeneratedCode); err != nil {
		return fmt.Errorf("generated_code: %w", err)
	}
	return nil
}

// marshalNullable encodes a nil slice as SQL NULL.
func marshalNullable[T any](v []T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalNullable[T any](data []byte, dst *[]T) error {
	if len(data) == 0 || string(data) == "null" {
		*dst = nil
		return nil
	}
	return json.Unmarshal(data, dst)
}

// nullableString lets a nil byte slice reach the driver as NULL.
func nullableString(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
