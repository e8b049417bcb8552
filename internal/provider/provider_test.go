package provider_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/mq_listener/internal/provider"
)

type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.provider.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesProperties(t *testing.T) {
	path := writeFile(t, `{"properties": {"connection_timeout": "30000", "locale": "en_US"}}`)

	env, err := provider.Load(context.Background(), path, nopLogger{})
	require.NoError(t, err)
	require.Equal(t, "30000", env["connection_timeout"])
	require.Equal(t, "en_US", env["locale"])
	require.Len(t, env, 2)
}

// Пустые значения пропускаются, ключи не валидируются.
func TestLoad_SkipsEmptyValues(t *testing.T) {
	path := writeFile(t, `{"properties": {"keep": "v", "drop": "", "blank": "   "}}`)

	env, err := provider.Load(context.Background(), path, nopLogger{})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"keep": "v"}, map[string]string(env))
}

// Отсутствующий файл и отсутствующая секция — не ошибка.
func TestLoad_MissingFileTolerated(t *testing.T) {
	env, err := provider.Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"), nopLogger{})
	require.NoError(t, err)
	require.Empty(t, env)
}

func TestLoad_MissingPropertiesSectionTolerated(t *testing.T) {
	path := writeFile(t, `{"name": "generic"}`)

	env, err := provider.Load(context.Background(), path, nopLogger{})
	require.NoError(t, err)
	require.Empty(t, env)
}

func TestLoad_EmptyPathTolerated(t *testing.T) {
	env, err := provider.Load(context.Background(), "", nopLogger{})
	require.NoError(t, err)
	require.Empty(t, env)
}

func TestLoad_BrokenJSONFails(t *testing.T) {
	path := writeFile(t, `{"properties": `)

	_, err := provider.Load(context.Background(), path, nopLogger{})
	require.Error(t, err)
}
