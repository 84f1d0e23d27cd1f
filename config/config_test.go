package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: 0123456789abcdef\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Workflow.CommitTimeout != time.Second {
		t.Errorf("期望 commit_timeout=1s，实际=%s", cfg.Workflow.CommitTimeout)
	}
	if cfg.Workflow.SynchronousCommit != "remote_apply" {
		t.Errorf("期望 synchronous_commit=remote_apply，实际=%s", cfg.Workflow.SynchronousCommit)
	}
	if cfg.Redis.EventsChannel != "scheme:events" {
		t.Errorf("期望 events_channel=scheme:events，实际=%s", cfg.Redis.EventsChannel)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望 port=8080，实际=%d", cfg.Server.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: 0123456789abcdef
workflow:
  commit_timeout: 250ms
  synchronous_commit: "on"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Workflow.CommitTimeout != 250*time.Millisecond {
		t.Errorf("期望 commit_timeout=250ms，实际=%s", cfg.Workflow.CommitTimeout)
	}
	if cfg.Workflow.SynchronousCommit != "on" {
		t.Errorf("期望 synchronous_commit=on，实际=%s", cfg.Workflow.SynchronousCommit)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef"},
			Workflow: WorkflowConfig{CommitTimeout: time.Second, SynchronousCommit: "remote_apply"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"缺少密钥", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"提交窗口为0", func(c *Config) { c.Workflow.CommitTimeout = 0 }, true},
		{"非法同步提交模式", func(c *Config) { c.Workflow.SynchronousCommit = "majority" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
