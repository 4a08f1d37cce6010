package jwtrevoke

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransportIsPrivate(t *testing.T) {
	t.Parallel()

	c, err := NewClient("key", WithTimeout(3*time.Second))
	require.NoError(t, err)

	hc := c.httpClient.HTTPClient
	require.NotNil(t, hc.Transport)
	assert.NotSame(t, http.DefaultTransport, hc.Transport)
	assert.Equal(t, 3*time.Second, hc.Timeout)

	other, err := NewClient("key")
	require.NoError(t, err)
	assert.NotSame(t, hc.Transport, other.httpClient.HTTPClient.Transport)
}
