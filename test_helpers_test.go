package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/filecache/filecache/internal/cache"
)

var repoRoot string

func init() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			repoRoot = dir
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// configFixture 指向 internal/config/testdata 下共享的配置样例。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	if repoRoot == "" {
		t.Fatal("无法定位项目根目录")
	}
	return filepath.Join(repoRoot, "internal", "config", "testdata", name)
}

// cliOutput 捕获 run 写往 stdOut/stdErr 的内容。
type cliOutput struct {
	out bytes.Buffer
	err bytes.Buffer
}

// captureOutput 在测试期间替换 stdOut/stdErr，结束时恢复。
func captureOutput(t *testing.T) *cliOutput {
	t.Helper()

	captured := &cliOutput{}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = &captured.out, &captured.err
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return captured
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(strings.TrimSpace(content)), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}

// cacheConfigFile 生成只包含 [Cache] Root 与额外字段的配置文件。
func cacheConfigFile(t *testing.T, root string, extra string) string {
	t.Helper()
	return writeConfigFile(t, fmt.Sprintf("LogLevel = \"error\"\n\n[Cache]\nRoot = %q\n%s", root, extra))
}

// seededCacheRoot 创建缓存根目录并写入给定 key，返回根目录路径。
func seededCacheRoot(t *testing.T, keys ...string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "storage")
	store, err := cache.New(cache.Options{Root: root})
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}
	for _, key := range keys {
		if err := store.Set(key, "value", cache.Seconds(10)); err != nil {
			t.Fatalf("写入缓存失败: %v", err)
		}
	}
	return root
}
