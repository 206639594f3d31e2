// Package tracker selects the issue-tracker backend named in configuration.
package tracker

import (
	"fmt"

	"github.com/kiranshivaraju/faultline/internal/config"
	"github.com/kiranshivaraju/faultline/internal/tracker/gh"
	"github.com/kiranshivaraju/faultline/internal/tracker/linear"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// New constructs the issue tracker for cfg. Called once at server startup.
func New(cfg config.TrackerConfig) (models.IssueTracker, error) {
	switch cfg.Kind {
	case "linear":
		return linear.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout), nil
	case "github":
		return gh.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown issue tracker %q: must be one of linear, github", cfg.Kind)
	}
}
