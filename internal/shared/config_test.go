package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Valid File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[credentials.spotify]
client_id = "id"
client_secret = "secret"
redirect_uri = "http://localhost:9090/callback"

[server]
host = "0.0.0.0"
port = 9090

[session]
backend = "sqlite"
ttl_hours = 48
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if config.Credentials.Spotify.ClientID != "id" {
			t.Errorf("expected client id, got %q", config.Credentials.Spotify.ClientID)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}
		if config.Session.Backend != "sqlite" || config.Session.TTLHours != 48 {
			t.Errorf("unexpected session config: %+v", config.Session)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Malformed File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfig(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", config.Server.Port)
	}
	if config.Session.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", config.Session.Backend)
	}
	if config.Session.CookieName != "mixtape_session" {
		t.Errorf("unexpected cookie name %q", config.Session.CookieName)
	}
	if config.Features.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", config.Features.Workers)
	}
	if config.Credentials.Spotify.RedirectURI == "" {
		t.Error("expected a default redirect URI")
	}
}

func TestCreateConfigFile(t *testing.T) {
	t.Run("Creates From Template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("created file should parse: %v", err)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected template defaults, got port %d", config.Server.Port)
		}
	})

	t.Run("Refuses To Overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("# existing"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if err := CreateConfigFile(path); err == nil {
			t.Error("expected error when file exists")
		}
	})
}
