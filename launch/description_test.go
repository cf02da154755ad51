package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Description
		wantErr string
	}{
		{
			name:    "no processes",
			desc:    Description{},
			wantErr: "no processes",
		},
		{
			name: "valid single process",
			desc: Description{Processes: []ProcessSpec{
				{Name: "app", Command: "sleep", Args: []string{"1"}},
			}},
		},
		{
			name: "missing name",
			desc: Description{Processes: []ProcessSpec{
				{Name: "  ", Command: "sleep"},
			}},
			wantErr: "has no name",
		},
		{
			name: "missing command",
			desc: Description{Processes: []ProcessSpec{
				{Name: "app"},
			}},
			wantErr: "has no command",
		},
		{
			name: "duplicate names",
			desc: Description{Processes: []ProcessSpec{
				{Name: "app", Command: "sleep"},
				{Name: "app", Command: "sleep"},
			}},
			wantErr: "duplicate process name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
