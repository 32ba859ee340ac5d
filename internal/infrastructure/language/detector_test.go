package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	d, err := NewDetector([]string{"portuguese", "English", "spanish"})
	require.NoError(t, err)

	lang, ok := d.Detect("Governo anuncia novo corte de impostos para trabalhadores em São Paulo")
	require.True(t, ok)
	assert.Equal(t, "portuguese", lang)

	lang, ok = d.Detect("Government announces new tax cuts for workers across the country")
	require.True(t, ok)
	assert.Equal(t, "english", lang)

	_, ok = d.Detect("   ")
	assert.False(t, ok)
}

func TestNewDetectorRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewDetector([]string{"portuguese", "klingon"})
	assert.Error(t, err)

	_, err = NewDetector([]string{"portuguese", "Portuguese"})
	assert.Error(t, err)
}
