package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, typ := range []Type{Adam, RMSProp, Vanilla} {
		s, err := New(typ, 1e-3)
		require.NoError(t, err)
		require.Equal(t, typ, s.Type())
		require.NotNil(t, s.solver)
	}

	_, err := New("sgd", 1e-3)
	require.Error(t, err)
	_, err = New(Adam, 0)
	require.Error(t, err)
}

func TestConfigJSON(t *testing.T) {
	c := DefaultConfig(RMSProp, 0.01)
	c.Clip = 5

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, c, decoded)
	require.NoError(t, decoded.Validate())
}

func TestValidate(t *testing.T) {
	c := DefaultConfig(RMSProp, 0.01)
	c.Rho = 1
	require.Error(t, c.Validate())

	c = DefaultConfig(Adam, 0.01)
	c.Beta2 = -0.1
	require.Error(t, c.Validate())

	c = DefaultConfig(Vanilla, 0.01)
	c.Batch = 0
	require.Error(t, c.Validate())
}

func TestState(t *testing.T) {
	s, err := New(Adam, 3e-4)
	require.NoError(t, err)
	s.steps = 17

	state := s.State()
	require.Equal(t, Adam, state.Config.Type)
	require.Equal(t, 17, state.Steps)

	restored, err := FromState(state)
	require.NoError(t, err)
	require.Equal(t, 17, restored.Steps())
	require.Equal(t, s.Config(), restored.Config())
	// Only the configuration carries over to the Gorgonia solver
	require.NotSame(t, s.solver, restored.solver)

	state.Config.Type = "sgd"
	_, err = FromState(state)
	require.Error(t, err)
}
