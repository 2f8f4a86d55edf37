package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "test")

	cfg := Load()
	if cfg.ServerAddr != ":3000" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, ":3000")
	}
	if cfg.APIBaseURL != "http://localhost:3000" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:3000")
	}
	if cfg.MediaUploadURL != "http://localhost:3000/upload" {
		t.Errorf("MediaUploadURL = %q, want производное от APIBaseURL", cfg.MediaUploadURL)
	}
	if cfg.JWT.AccessTTL != 15*time.Minute {
		t.Errorf("JWT.AccessTTL = %v, want 15m", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 720*time.Hour {
		t.Errorf("JWT.RefreshTTL = %v, want 720h", cfg.JWT.RefreshTTL)
	}
	if cfg.DBMaxConnections() != 20 {
		t.Errorf("DBMaxConnections = %d, want 20", cfg.DBMaxConnections())
	}
	if cfg.MaxUploadSize != 10<<20 {
		t.Errorf("MaxUploadSize = %d, want 10MB", cfg.MaxUploadSize)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "test")
	os.Setenv("SERVER_ADDR", ":9000")
	os.Setenv("API_BASE_URL", "https://api.drox.app/")
	os.Setenv("MEDIA_UPLOAD_URL", "https://media.drox.app/upload")
	os.Setenv("JWT_ACCESS_TTL_MINUTES", "5")
	os.Setenv("DB_MAX_CONNECTIONS", "7")

	cfg := Load()
	if cfg.ServerAddr != ":9000" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, ":9000")
	}
	// Хвостовой слэш срезается
	if cfg.APIBaseURL != "https://api.drox.app" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "https://api.drox.app")
	}
	if cfg.MediaUploadURL != "https://media.drox.app/upload" {
		t.Errorf("MediaUploadURL = %q", cfg.MediaUploadURL)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute {
		t.Errorf("JWT.AccessTTL = %v, want 5m", cfg.JWT.AccessTTL)
	}
	if cfg.DBMaxConnections() != 7 {
		t.Errorf("DBMaxConnections = %d, want 7", cfg.DBMaxConnections())
	}
}
