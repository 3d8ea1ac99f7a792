package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	old := Version
	Version = "1.2.3"
	t.Cleanup(func() { Version = old })

	info := Get()
	if info.Version != "1.2.3" || String() != "1.2.3" {
		t.Errorf("Get().Version = %q, String() = %q", info.Version, String())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
	if !strings.HasPrefix(UserAgent(), "camalbum/1.2.3 (") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
