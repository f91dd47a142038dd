package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aceeric/layerimport/impl/config"
	"github.com/google/go-cmp/cmp"
)

var cfgYaml = `
---
storagePath: /var/lib/layerimport
logLevel: error
repo: from-file
mask: from-file-mask
importConfig:
  chunkSize: 8192
  compression: zstd
  atomicWrites: false
serverTlsConfig:
  cert: /tls/server.crt
  key: /tls/server.key
  clientAuth: none
`

// Test that the command line configuration is correctly merged into config from
// a file.
func TestCmdlineOverridesConfig(t *testing.T) {
	td := t.TempDir()
	cfgFile := filepath.Join(td, "testcfg.yaml")
	if err := os.WriteFile(cfgFile, []byte(cfgYaml), 0700); err != nil {
		t.Fatal(err)
	}
	archivePath := filepath.Join(td, "busybox.tar")
	if err := os.WriteFile(archivePath, []byte("foo"), 0644); err != nil {
		t.Fatal(err)
	}
	setup()
	os.Args = []string{"bin/layerimport", "--storage-path", td, "--log-level", "info", "--config-file", cfgFile,
		"import", "--archive", archivePath, "--repo", "from-cmdline", "--compression", "none"}

	command, err := getCfg()
	if err != nil {
		t.Fatal(err)
	}
	switch {
	case command != "import":
		t.Errorf("command: %q", command)
	case config.GetLogLevel() != "info":
		t.Errorf("log level: %q", config.GetLogLevel())
	case config.GetConfigFile() != cfgFile:
		t.Errorf("config file: %q", config.GetConfigFile())
	case config.GetStoragePath() != td:
		t.Errorf("storage path: %q", config.GetStoragePath())
	case config.GetRepo() != "from-cmdline":
		t.Errorf("repo: %q", config.GetRepo())
	case config.GetMask() != "from-file-mask":
		t.Errorf("mask: %q", config.GetMask())
	case config.GetArchive() != archivePath:
		t.Errorf("archive: %q", config.GetArchive())
	case config.GetChunkSize() != 8192:
		t.Errorf("chunk size: %d", config.GetChunkSize())
	case config.GetCompression() != "none":
		t.Errorf("compression: %q", config.GetCompression())
	case config.GetAtomicWrites():
		t.Error("expected atomic writes from the config file to be honored")
	}
}

func TestTlsCfgFromFile(t *testing.T) {
	td := t.TempDir()
	cfgFile := filepath.Join(td, "testcfg.yaml")
	if err := os.WriteFile(cfgFile, []byte(cfgYaml), 0700); err != nil {
		t.Fatal(err)
	}
	setup()
	os.Args = []string{"bin/layerimport", "--config-file", cfgFile, "serve"}

	if _, err := getCfg(); err != nil {
		t.Fatal(err)
	}
	expectCfg := config.ServerTlsConfig{
		Cert:       "/tls/server.crt",
		Key:        "/tls/server.key",
		ClientAuth: "none",
	}
	if diff := cmp.Diff(expectCfg, config.GetServerTlsCfg()); diff != "" {
		t.Errorf("unexpected TLS config (-want +got):\n%s", diff)
	}
}
