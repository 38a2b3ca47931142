package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    int64
		wantErr bool
	}{
		{
			name: "video stream duration",
			json: `{"streams":[{"codec_type":"audio","duration":"99.0"},{"codec_type":"video","duration":"1320.48"}],"format":{"duration":"1321.0"}}`,
			want: 1320,
		},
		{
			name: "falls back to format",
			json: `{"streams":[{"codec_type":"video"}],"format":{"duration":"596.2"}}`,
			want: 596,
		},
		{
			name: "audio only file uses format",
			json: `{"streams":[{"codec_type":"audio","duration":"30.0"}],"format":{"duration":"30.5"}}`,
			want: 30,
		},
		{
			name:    "no duration",
			json:    `{"streams":[],"format":{}}`,
			wantErr: true,
		},
		{
			name:    "sub-second",
			json:    `{"streams":[],"format":{"duration":"0.4"}}`,
			wantErr: true,
		},
		{
			name:    "malformed",
			json:    `{"streams":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeOutput([]byte(tt.json))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFFprobe_MissingBinary(t *testing.T) {
	_, err := FFprobe{Binary: "definitely-not-ffprobe"}.Duration(context.Background(), "/tmp/x.mp4")
	assert.ErrorIs(t, err, ErrFFprobeNotFound)
}
