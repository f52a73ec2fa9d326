package firebaseapp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRejectsBadBase64(t *testing.T) {
	_, err := New(context.Background(), "", "%%%not-base64", "")
	assert.ErrorContains(t, err, "decode base64")
}

func TestNewRequiresSomeCredentials(t *testing.T) {
	_, err := New(context.Background(), "", "", filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "local firebase file not found")
}
