package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false, ServerAddress: "http://localhost:4040"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilerConfig
		want string
	}{
		{
			name: "missing server address",
			cfg:  ProfilerConfig{Enabled: true, ApplicationName: "storepulse"},
			want: "server address is required",
		},
		{
			name: "missing application name",
			cfg:  ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"},
			want: "application name is required",
		},
		{
			name: "unknown profile type",
			cfg: ProfilerConfig{
				Enabled:         true,
				ServerAddress:   "http://localhost:4040",
				ApplicationName: "storepulse",
				ProfileTypes:    []string{"cpu", "heap"},
			},
			want: `unknown profile type "heap"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Len(t, types, len(DefaultProfileTypes))

	types, err = ParseProfileTypes([]string{" CPU ", "cpu", "mutex_count"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileMutexCount}, types)
}

func TestWithProfilingLabels(t *testing.T) {
	var got map[string]string
	WithProfilingLabels(context.Background(), map[string]string{
		ProfilingLabelOperation: "dashboard.fetch",
		ProfilingLabelProvider:  "commerce",
		"empty":                 "",
	}, func(ctx context.Context) {
		got = map[string]string{}
		pprof.ForLabels(ctx, func(k, v string) bool {
			got[k] = v
			return true
		})
	})

	assert.Equal(t, map[string]string{"operation": "dashboard.fetch", "provider": "commerce"}, got)
}

func TestWithProfilingLabels_NoLabelsRunsFn(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestLabelPairs_Truncates(t *testing.T) {
	pairs := labelPairs(map[string]string{"b": strings.Repeat("x", 100), "a": "1"})
	require.Len(t, pairs, 4)
	assert.Equal(t, "a", pairs[0])
	assert.Equal(t, "b", pairs[2])
	assert.Len(t, pairs[3], maxLabelValueLength)
}
