package credentials

import (
	"fmt"
	"os"

	"storepulse/pkg/config"
	"storepulse/pkg/store/mysql"
)

// Keys present in platform credential maps.
const (
	KeyID              = "key_id"
	IssuerID           = "issuer_id"
	PrivateKey         = "private_key"
	ServiceAccountPath = "service_account_path"
	ReportBucket       = "report_bucket"
)

// Provider resolves the credential material a platform's vendor client
// needs. Values are opaque strings to the pipeline.
type Provider interface {
	PlatformConfig(platform string) (map[string]string, error)
}

// ConfigProvider reads credentials from the global config, loading key
// files from disk at resolve time so rotated files are picked up without a
// restart.
type ConfigProvider struct{}

// NewConfigProvider creates a config-backed credential provider.
func NewConfigProvider() *ConfigProvider {
	return &ConfigProvider{}
}

// PlatformConfig returns the credential map for a platform. Missing fields
// are configuration errors that abort only the affected platform.
func (p *ConfigProvider) PlatformConfig(platform string) (map[string]string, error) {
	if config.GlobalConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	creds := config.GlobalConfig.Credentials

	switch platform {
	case mysql.PlatformIOS:
		appStore := creds.AppStore
		if appStore.KeyID == "" || appStore.IssuerID == "" || appStore.PrivateKeyPath == "" {
			return nil, fmt.Errorf("app store connect credentials are not fully configured")
		}
		pem, err := os.ReadFile(appStore.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read app store connect key file: %w", err)
		}
		return map[string]string{
			KeyID:      appStore.KeyID,
			IssuerID:   appStore.IssuerID,
			PrivateKey: string(pem),
		}, nil

	case mysql.PlatformAndroid:
		play := creds.GooglePlay
		if play.ServiceAccountPath == "" || play.ReportBucket == "" {
			return nil, fmt.Errorf("google play credentials are not fully configured")
		}
		if _, err := os.Stat(play.ServiceAccountPath); err != nil {
			return nil, fmt.Errorf("google play service account file is not readable: %w", err)
		}
		return map[string]string{
			ServiceAccountPath: play.ServiceAccountPath,
			ReportBucket:       play.ReportBucket,
		}, nil
	}

	return nil, fmt.Errorf("unknown platform %q", platform)
}
