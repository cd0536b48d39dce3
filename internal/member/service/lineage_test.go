package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTouchesLineage(t *testing.T) {
	tests := []struct {
		patch string
		want  bool
	}{
		{`{"generation":3}`, true},
		{`{"gender":"other","bio":"x"}`, true},
		{`{"generation":null}`, true},
		{`{"occupation":"Smith"}`, false},
		{`not json`, false},
		{`[]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.patch, func(t *testing.T) {
			assert.Equal(t, tt.want, touchesLineage([]byte(tt.patch)))
		})
	}
}
