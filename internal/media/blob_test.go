package media_test

import (
	"testing"

	"arqueo-backend/internal/media"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"sherd.jpg", "users/u1/findings/f1/photo/sherd.jpg"},
		{"../../etc/passwd", "users/u1/findings/f1/photo/passwd"},
		{`C:\scans\sherd.png`, "users/u1/findings/f1/photo/sherd.png"},
		{"", "users/u1/findings/f1/photo/upload"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, media.Key("u1", "f1", media.KindPhoto, tt.filename))
	}
}
