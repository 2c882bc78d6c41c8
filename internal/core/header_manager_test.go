package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部存在", func(t *testing.T) {
		hm, err := NewHeaderManager("", nil, nil)
		require.NoError(t, err)

		headers := hm.GetMergedHeaders()
		assert.Equal(t, DefaultUserAgent, headers.Get("User-Agent"))
		assert.NotEmpty(t, headers.Get("Accept"))
	})

	t.Run("优先级 default < config < cli", func(t *testing.T) {
		hm, err := NewHeaderManager("ConfigBot/1.0", map[string]string{
			"X-Config": "from-config",
			"X-Both":   "config",
		}, []string{"X-Both: cli"})
		require.NoError(t, err)

		headers := hm.GetMergedHeaders()
		assert.Equal(t, "ConfigBot/1.0", headers.Get("User-Agent"))
		assert.Equal(t, "from-config", headers.Get("X-Config"))
		assert.Equal(t, "cli", headers.Get("X-Both"))
	})

	t.Run("命令行头部覆盖User-Agent", func(t *testing.T) {
		hm, err := NewHeaderManager("ConfigBot/1.0", nil, []string{"User-Agent: CustomBot/1.0"})
		require.NoError(t, err)
		assert.Equal(t, "CustomBot/1.0", hm.GetMergedHeaders().Get("User-Agent"))
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager("", nil, []string{
		"User-Agent: CustomBot/1.0",
		"Authorization: Bearer secret-token-12345",
		"X-API-Key: api-key-67890",
	})
	require.NoError(t, err)

	safe := hm.GetSafeHeaders()
	assert.Equal(t, "CustomBot/1.0", safe["User-Agent"])
	assert.Equal(t, "Bearer ***", safe["Authorization"])
	assert.NotEqual(t, "api-key-67890", safe["X-API-Key"])
}

func TestHeaderManager_Invalid(t *testing.T) {
	t.Run("缺少冒号", func(t *testing.T) {
		_, err := NewHeaderManager("", nil, []string{"InvalidFormat"})
		assert.Error(t, err)
	})

	t.Run("禁止头部", func(t *testing.T) {
		_, err := NewHeaderManager("", nil, []string{"Host: example.com"})
		assert.Error(t, err)
	})

	t.Run("配置文件中的非法头部", func(t *testing.T) {
		_, err := NewHeaderManager("", map[string]string{"Bad Header": "x"}, nil)
		assert.Error(t, err)
	})
}

func TestHeaderManager_GetHeadersReturnsCopy(t *testing.T) {
	hm, err := NewHeaderManager("", nil, []string{"X-Custom: test-value"})
	require.NoError(t, err)

	headers, err := hm.GetHeaders()
	require.NoError(t, err)
	assert.Equal(t, "test-value", headers.Get("X-Custom"))

	headers.Set("X-Custom", "changed")
	again, _ := hm.GetHeaders()
	assert.Equal(t, "test-value", again.Get("X-Custom"))
}
