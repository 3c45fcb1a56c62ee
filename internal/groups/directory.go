package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Resolver looks a group id up by name.
type Resolver interface {
	GroupID(ctx context.Context, name string) (string, error)
}

// Group is a configured group together with its AdsPower id.
type Group struct {
	Name string
	ID   string
}

// Directory holds the configured groups in configuration order.
type Directory struct {
	groups []Group
}

// Resolve maps each configured group name to its id. Every name must
// resolve: a missing group is a configuration error and stops the job.
func Resolve(ctx context.Context, r Resolver, names []string) (*Directory, error) {
	if len(names) == 0 {
		return nil, errors.New("no groups configured")
	}
	d := &Directory{groups: make([]Group, 0, len(names))}
	for _, name := range names {
		id, err := r.GroupID(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolving group %q: %w", name, err)
		}
		d.groups = append(d.groups, Group{Name: name, ID: id})
		log.Info().Str("group", name).Str("group_id", id).Msg("Resolved group")
	}
	return d, nil
}

// NewDirectory builds a directory from already known ids.
func NewDirectory(groups ...Group) *Directory {
	return &Directory{groups: append([]Group(nil), groups...)}
}

// All returns the groups in configuration order.
func (d *Directory) All() []Group {
	return d.groups
}

// Names returns the group names in configuration order.
func (d *Directory) Names() []string {
	names := make([]string, len(d.groups))
	for i, g := range d.groups {
		names[i] = g.Name
	}
	return names
}
