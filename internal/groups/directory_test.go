package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver map[string]string

var errMissing = errors.New("group not found")

func (s stubResolver) GroupID(_ context.Context, name string) (string, error) {
	if id, ok := s[name]; ok {
		return id, nil
	}
	return "", errMissing
}

func TestResolveKeepsOrder(t *testing.T) {
	d, err := Resolve(context.Background(), stubResolver{"Alpha": "1", "Beta": "2"}, []string{"Beta", "Alpha"})
	require.NoError(t, err)
	assert.Equal(t, []Group{{Name: "Beta", ID: "2"}, {Name: "Alpha", ID: "1"}}, d.All())
	assert.Equal(t, []string{"Beta", "Alpha"}, d.Names())
}

func TestResolveFailsFastOnMissingGroup(t *testing.T) {
	_, err := Resolve(context.Background(), stubResolver{"Alpha": "1"}, []string{"Alpha", "Gamma"})
	assert.ErrorIs(t, err, errMissing)
	assert.ErrorContains(t, err, "Gamma")
}

func TestResolveNoGroups(t *testing.T) {
	_, err := Resolve(context.Background(), stubResolver{}, nil)
	assert.Error(t, err)
}
