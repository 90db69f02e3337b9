package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityMetadata_ScanBytes(t *testing.T) {
	var m ActivityMetadata
	err := m.Scan([]byte(`{"post_id":"p1","status":"approved"}`))

	require.NoError(t, err)
	assert.Equal(t, "p1", m["post_id"])
	assert.Equal(t, "approved", m["status"])
}

func TestActivityMetadata_ScanNil(t *testing.T) {
	var m ActivityMetadata
	err := m.Scan(nil)

	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Len(t, m, 0)
}

func TestActivityMetadata_ScanUnsupportedType(t *testing.T) {
	var m ActivityMetadata
	err := m.Scan(42)

	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestActivityMetadata_ValueRoundTrip(t *testing.T) {
	m := ActivityMetadata{"target_id": "u2"}

	v, err := m.Value()
	require.NoError(t, err)

	var back ActivityMetadata
	require.NoError(t, back.Scan(v))
	assert.Equal(t, "u2", back["target_id"])
}

func TestActivityMetadata_NilValue(t *testing.T) {
	var m ActivityMetadata

	v, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
