package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Syntagma", "syntagma"},
		{"  SYNTAGMA ", "syntagma"},
		{"Σύνταγμα", "συνταγμα"},
		{"ΠΕΙΡΑΙΑΣ", "πειραιασ"},
		{"Πειραιάς", "πειραιασ"},
		{"Syngrou-Fix", "syngrou fix"},
		{"Agios   Nikolaos", "agios nikolaos"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.in))
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"e-14", "E14"},
		{"E14", "E14"},
		{" Line 1 ", "LINE1"},
		{"x95", "X95"},
		{"Γραμμή 1", "ΓΡΑΜΜΗ1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.in))
		})
	}
}
