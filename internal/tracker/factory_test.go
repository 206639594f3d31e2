package tracker_test

import (
	"testing"
	"time"

	"github.com/kiranshivaraju/faultline/internal/config"
	"github.com/kiranshivaraju/faultline/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Linear(t *testing.T) {
	tr, err := tracker.New(config.TrackerConfig{Kind: "linear", APIKey: "lin_api_test", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "linear", tr.Name())
}

func TestNew_GitHub(t *testing.T) {
	tr, err := tracker.New(config.TrackerConfig{Kind: "github", APIKey: "ghp_test", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "github", tr.Name())
}

func TestNew_GitHubEnterprise(t *testing.T) {
	tr, err := tracker.New(config.TrackerConfig{Kind: "github", APIKey: "ghp_test", BaseURL: "https://ghe.example.com", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "github", tr.Name())
}

func TestNew_Unknown(t *testing.T) {
	_, err := tracker.New(config.TrackerConfig{Kind: "jira"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jira")
}
