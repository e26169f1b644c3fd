package s1_universe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/universe/internal/pipeline"
)

func TestConfig_Screen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    pipeline.Filter
		wantErr bool
	}{
		{
			name: "common mask",
			cfg:  Config{MaskMode: MaskCommon},
			want: BaseUniverse(WithCommonStocksMask()),
		},
		{
			name: "no mask",
			cfg:  Config{MaskMode: MaskNone},
			want: CommonStocks().And(BaseUniverse()),
		},
		{
			name:    "unknown mode",
			cfg:     Config{MaskMode: "sector"},
			wantErr: true,
		},
		{
			name:    "missing screen file",
			cfg:     Config{MaskMode: MaskCommon, ScreenFile: filepath.Join(t.TempDir(), "missing.yaml")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Screen()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, pipeline.Equal(tt.want, got), got.String())
		})
	}
}

func TestConfig_ScreenFile(t *testing.T) {
	data, err := pipeline.EncodeScreen(BaseUniverse(WithCommonStocksMask()))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "base.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := Config{MaskMode: MaskNone, ScreenFile: path}.Screen()
	require.NoError(t, err)
	assert.True(t, pipeline.Equal(BaseUniverse(WithCommonStocksMask()), got), "screen file takes precedence over mask mode")
}
