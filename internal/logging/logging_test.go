package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReturnsUsableLogger(t *testing.T) {
	for _, json := range []bool{true, false} {
		log := New(json)
		assert.NotNil(t, log)
		assert.NotPanics(t, func() { log.Infow("test message", "json", json) })
	}
}
