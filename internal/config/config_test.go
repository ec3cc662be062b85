package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		CRM: CRMConfig{
			BaseURL:      "https://org.crm.dynamics.com",
			TenantID:     "tenant-1",
			ClientID:     "client-1",
			ClientSecret: "secret",
		},
		Sync:    SyncConfig{ReplicationDelaySecs: 10, WaitAttempts: 10, WaitDelayMs: 1000},
		Uploads: UploadsConfig{Dir: "uploads", MaxFileSizeMB: 10},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Sync.ReplicationDelaySecs)
	assert.Equal(t, 10, cfg.Sync.WaitAttempts)
	assert.Equal(t, 1000, cfg.Sync.WaitDelayMs)
	assert.Equal(t, "uploads", cfg.Uploads.Dir)
	assert.Equal(t, 10, cfg.Uploads.MaxFileSizeMB)
}

func TestLoad_SecretFromEnvironment(t *testing.T) {
	t.Setenv("CRM_CLIENT_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.CRM.ClientSecret)
}

func TestValidate_MissingFieldsListed(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CRM.BaseURL = ""
	cfg.CRM.ClientSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crm.base_url")
	assert.Contains(t, err.Error(), "crm.client_secret")
}

func TestValidate_FileSizeBounds(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Uploads.MaxFileSizeMB = 0
	assert.Error(t, cfg.Validate())

	cfg.Uploads.MaxFileSizeMB = 101
	assert.Error(t, cfg.Validate())

	cfg.Uploads.MaxFileSizeMB = 100
	assert.NoError(t, cfg.Validate())
}

func TestValidate_WaitAttempts(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Sync.WaitAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestCRMConfig_DerivedEndpoints(t *testing.T) {
	t.Parallel()

	crm := CRMConfig{BaseURL: "https://org.crm.dynamics.com", TenantID: "tenant-1"}
	assert.Equal(t, "https://login.microsoftonline.com/tenant-1/oauth2/v2.0/token", crm.TokenURL())
	assert.Equal(t, "https://org.crm.dynamics.com/.default", crm.Scope())
}
