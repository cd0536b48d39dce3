package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"JANE_DOE+family@example.com", "Jane Doe"},
		{"mary-ann.smith@example.com", "Mary Ann Smith"},
		{"jsmith@example.com", "Jsmith"},
		{"12345@example.com", ""},
		{"@example.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.addr))
		})
	}
}
