package gateway_test

import (
	"testing"

	gateway "github.com/goliatone/go-gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesBuiltins(t *testing.T) {
	r := gateway.NewProviderRegistry(gateway.ProviderDeps{})

	for _, name := range []string{"jwt", "icat", "github", "anon"} {
		assert.True(t, r.Known(name), name)

		p, err := r.Resolve(name, gateway.ProviderConfig{AuthURL: "http://auth.example"})
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestRegistryResolveUnknownMnemonicIsCheckedError(t *testing.T) {
	r := gateway.NewProviderRegistry(gateway.ProviderDeps{})

	p, err := r.Resolve("nonsense", gateway.ProviderConfig{})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, gateway.ErrUnknownAuthProvider)
	assert.True(t, gateway.IsConfigError(err))
}

func TestRegistryResolveDottedSelector(t *testing.T) {
	r := gateway.NewProviderRegistry(gateway.ProviderDeps{})

	p, err := r.Resolve("icat.ldap", gateway.ProviderConfig{AuthURL: "http://auth.example"})
	require.NoError(t, err)
	assert.Equal(t, "icat", p.Name())
}

func TestRegistryCustomProvider(t *testing.T) {
	r := gateway.NewProviderRegistry(gateway.ProviderDeps{})

	r.Register("custom", func(cfg gateway.ProviderConfig, deps gateway.ProviderDeps) (gateway.AuthProvider, error) {
		return &stubProvider{name: "custom"}, nil
	})

	p, err := r.Resolve("custom", gateway.ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name())
}
