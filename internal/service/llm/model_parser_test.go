package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		name         string
		modelStr     string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{name: "claude-haiku with version", modelStr: "claude-haiku-4-5", wantProvider: "anthropic", wantModel: "claude-haiku-4-5"},
		{name: "claude-haiku dated", modelStr: "claude-haiku-4-5-20251001", wantProvider: "anthropic", wantModel: "claude-haiku-4-5-20251001"},
		{name: "openrouter with full path", modelStr: "openrouter/anthropic/claude-haiku-4.5", wantProvider: "openrouter", wantModel: "anthropic/claude-haiku-4.5"},
		{name: "lorem-fast model", modelStr: "lorem-fast", wantProvider: "lorem", wantModel: "lorem-fast"},
		{name: "uppercase prefix", modelStr: "Claude-Sonnet-4-5", wantProvider: "anthropic", wantModel: "Claude-Sonnet-4-5"},
		{name: "empty string", modelStr: "", wantErr: true},
		{name: "unknown provider", modelStr: "gpt-4", wantErr: true},
		{name: "empty provider", modelStr: "/claude-haiku-4-5", wantErr: true},
		{name: "empty model", modelStr: "openrouter/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.modelStr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, got.Provider)
			assert.Equal(t, tt.wantModel, got.Model)
		})
	}
}
