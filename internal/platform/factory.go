package platform

import (
	"context"

	"github.com/Re4zOon/repo-maintainer/config"
)

// NewFromConfig builds the platform implementation the configuration
// selects and verifies its credentials.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Platform, error) {
	if cfg.Platform == config.PlatformGitHub {
		return NewGitHub(ctx, cfg.GitHub.Token, cfg.GitHub.APIURL)
	}
	return NewGitLab(ctx, cfg.GitLab.URL, cfg.GitLab.Token)
}
