package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
  request_timeout: 3s
database:
  driver: memory
jwt:
  secret: from-file
lock:
  driver: redis
  ttl: 30s
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("S3_BUCKET_NAME", "media")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("request timeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("jwt secret = %q, want env override", cfg.JWT.Secret)
	}
	if cfg.S3.BucketName != "media" {
		t.Errorf("bucket = %q", cfg.S3.BucketName)
	}
	if cfg.Lock.Driver != LockRedis || cfg.Lock.TTL != 30*time.Second {
		t.Errorf("lock = %+v", cfg.Lock)
	}
	if cfg.Lock.Retry != 25*time.Millisecond {
		t.Errorf("lock retry default = %v", cfg.Lock.Retry)
	}
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Driver != DriverMongo || cfg.Database.Name != "plan_tracker" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Server.MaxUploadBytes != 50<<20 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Lock:     LockConfig{Driver: "etcd"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"jwt.secret", "database.driver", "lock.driver", "request_timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
