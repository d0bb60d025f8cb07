package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		in   string
		want Environment
		mode string
	}{
		{in: "production", want: Production, mode: "release"},
		{in: " PROD ", want: Production, mode: "release"},
		{in: "staging", want: Staging, mode: "release"},
		{in: "test", want: Testing, mode: "test"},
		{in: "", want: Development, mode: "debug"},
		{in: "qa", want: Development, mode: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseEnvironment(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.mode, got.RouterMode())
		})
	}
}

func TestEnvironment_Decode(t *testing.T) {
	var env Environment
	assert.NoError(t, env.Decode("Production"))
	assert.True(t, env.IsProduction())
}
