package scene

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"

	"github.com/goccy/go-json"

	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/pkg/concurrent"
)

// Encode captures every entity of w, in id order. Component payloads go
// through their JSON representation.
func Encode(name string, w *ecs.World) (*Document, error) {
	doc := &Document{Name: name}
	for _, e := range w.Entities() {
		spec := EntitySpec{
			ID:   uint64(e.ID()),
			Name: e.Name(),
			Tags: e.Tags(),
		}
		if !e.Active() {
			inactive := false
			spec.Active = &inactive
		}
		if e.ComponentCount() > 0 {
			spec.Components = make(map[string]map[string]any, e.ComponentCount())
		}
		for _, c := range e.Components() {
			fields, err := toFields(c)
			if err != nil {
				return nil, fmt.Errorf("encode %s on %s: %w", ecs.TypeOf(c), e, err)
			}
			spec.Components[ecs.TypeOf(c).String()] = fields
		}
		doc.Entities = append(doc.Entities, spec)
	}
	return doc, nil
}

// Build turns the document into detached entities using reg to construct
// components. Nothing is attached when any entity fails.
func Build(doc *Document, reg *ecs.Registry) ([]*ecs.Entity, error) {
	out := make([]*ecs.Entity, 0, len(doc.Entities))
	for i, spec := range doc.Entities {
		e := ecs.NewEntity(spec.Name)
		e.SetActive(spec.IsActive())
		for _, tag := range spec.Tags {
			e.AddTag(tag)
		}
		for _, name := range slices.Sorted(maps.Keys(spec.Components)) {
			c, err := reg.New(name)
			if err != nil {
				return nil, fmt.Errorf("scene %q entity %d: %w", doc.Name, i, err)
			}
			if err = fromFields(spec.Components[name], c); err != nil {
				return nil, fmt.Errorf("scene %q entity %d component %s: %w", doc.Name, i, name, err)
			}
			if err = e.Add(c); err != nil {
				return nil, fmt.Errorf("scene %q entity %d: %w", doc.Name, i, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// Spawn builds the document and attaches every entity to w.
func Spawn(w *ecs.World, reg *ecs.Registry, doc *Document) ([]*ecs.Entity, error) {
	entities, err := Build(doc, reg)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if err = w.AddEntity(e); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// LoadFiles decodes every path in parallel and returns the documents in the
// order given.
func LoadFiles(ctx context.Context, paths []string) ([]*Document, error) {
	return concurrent.Map(ctx, paths, runtime.GOMAXPROCS(0), func(_ context.Context, path string) (*Document, error) {
		return ReadFile(path)
	})
}

func toFields(c ecs.Component) (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func fromFields(fields map[string]any, c ecs.Component) error {
	if len(fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, c)
}
