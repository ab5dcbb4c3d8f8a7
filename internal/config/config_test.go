package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WritesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Template(), cfg)

	// File was materialized and loads back identically.
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialConfigFallsBackToTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	custom := `{"exchange":"0x0000000000000000000000000000000000000123"}`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x123"), cfg.Exchange)
	// Everything unspecified comes from the template.
	assert.Equal(t, Template().Erc20Proxy, cfg.Erc20Proxy)
	assert.Equal(t, Template().Artifacts.Taker, cfg.Artifacts.Taker)
}

func TestLoad_TransformerConstructorArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	custom := `{
		"transformers": {
			"deployer": "0x80a36559ab9a497fb658325ed771a584eb0f13da",
			"overridesByNonce": {
				"7": {
					"artifactPath": "build/PayTakerTransformer.output.json",
					"constructorArgs": ["0x0000000000000000000000000000000000000123", 42],
					"balance": "0x10"
				}
			}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	ov, ok := cfg.Transformers.OverridesByNonce[7]
	require.True(t, ok)
	assert.Equal(t, "build/PayTakerTransformer.output.json", ov.ArtifactPath)
	require.Len(t, ov.ConstructorArgs, 2)
	assert.JSONEq(t, `"0x0000000000000000000000000000000000000123"`, string(ov.ConstructorArgs[0]))
	assert.JSONEq(t, `42`, string(ov.ConstructorArgs[1]))
}

func TestLoad_RejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseBig(t *testing.T) {
	v, err := ParseBig("1000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	v, err = ParseBig("0xde0b6b3a7640000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	v, err = ParseBig("  ")
	require.NoError(t, err)
	assert.Zero(t, v.Sign())

	_, err = ParseBig("one ether")
	assert.Error(t, err)
}

func TestGetenv(t *testing.T) {
	t.Setenv("QUOTEFILL_TEST_KEY", " value ")
	assert.Equal(t, "value", Getenv("QUOTEFILL_TEST_KEY", "def"))
	assert.Equal(t, "def", Getenv("QUOTEFILL_TEST_MISSING", "def"))
}
