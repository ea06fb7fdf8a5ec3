package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFillFromBuildInfo(t *testing.T) {
	tests := []struct {
		name       string
		start      Info
		bi         debug.BuildInfo
		wantVer    string
		wantCommit string
	}{
		{
			name:  "ldflags win",
			start: Info{Version: "v1.2.0", GitCommit: "abc", BuildDate: "today"},
			bi: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.9.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "def"}},
			},
			wantVer:    "v1.2.0",
			wantCommit: "abc",
		},
		{
			name:  "go install",
			start: Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
			bi: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.9.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "def"}},
			},
			wantVer:    "v0.9.0",
			wantCommit: "def",
		},
		{
			name:       "devel build",
			start:      Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
			bi:         debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVer:    "dev",
			wantCommit: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.start
			fillFromBuildInfo(&info, &tt.bi)
			if info.Version != tt.wantVer || info.GitCommit != tt.wantCommit {
				t.Errorf("got %s/%s, want %s/%s", info.Version, info.GitCommit, tt.wantVer, tt.wantCommit)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "0123456789abcdef",
		BuildDate: "2026-01-02",
		GoVersion: "go1.24.11",
		Platform:  "linux/arm",
	}
	got := info.String()
	if !strings.Contains(got, "sunxidisp v1.0.0") || !strings.Contains(got, "commit 0123456789ab,") {
		t.Errorf("String() = %q", got)
	}
	if Get().GoVersion == "" {
		t.Error("Get().GoVersion is empty")
	}
}
