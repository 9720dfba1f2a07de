//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

// TestRaptorMaps_Live runs the shipped suites against the live sites.
// Page markup changes outside this repository, so failures here point at
// the sites as often as at pagespec.
func TestRaptorMaps_Live(t *testing.T) {
	if os.Getenv("PAGESPEC_LIVE") == "" || os.Getenv("RAPTORMAPS_TOKEN") == "" {
		t.Skip("set PAGESPEC_LIVE=1 and RAPTORMAPS_TOKEN to run against the live sites")
	}

	files, err := filepath.Glob(filepath.Join("..", "suites", "raptormaps", "public_site*.pagespec"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	h := newRod(t)
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			cfg := &runner.Config{NavigationRate: 0.5}
			result, err := runner.NewRunner(h, cfg).RunFile(ctx, file)
			require.NoError(t, err)
			for _, cr := range result.Results {
				assert.Nil(t, cr.Failure, "case %q", cr.Name)
			}
		})
	}
}

func TestRaptorMaps_APIEndpointLive(t *testing.T) {
	if os.Getenv("PAGESPEC_LIVE") == "" || os.Getenv("RAPTORMAPS_TOKEN") == "" {
		t.Skip("set PAGESPEC_LIVE=1 and RAPTORMAPS_TOKEN to run against the live API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	file := filepath.Join("..", "suites", "raptormaps", "api_endpoint.pagespec")
	result, err := runner.NewRunner(nil, &runner.Config{Timeout: 30 * time.Second, ValidateSSL: true}).RunFile(ctx, file)
	require.NoError(t, err)
	assert.True(t, result.Success(), "%+v", result.Results)
}
