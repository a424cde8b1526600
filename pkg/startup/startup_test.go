package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	startErr  error
	order     *[]string
}

func (d *fakeDependency) GetName() string     { return d.name }
func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(_ context.Context) error {
	if d.startErr != nil {
		return d.startErr
	}
	*d.order = append(*d.order, d.name)
	return nil
}

func (d *fakeDependency) Stop(_ context.Context) error { return nil }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_StartsDependenciesInOrder(t *testing.T) {
	var order []string
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"database"}, order: &order})
	s.AddDependency(&fakeDependency{name: "database", order: &order})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"database", "server"}, order)
}

func TestStartup_FailsAfterMaxAttempts(t *testing.T) {
	var order []string
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&fakeDependency{name: "database", startErr: errors.New("connection refused"), order: &order})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 attempts")
}
