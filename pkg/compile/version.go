package compile

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog/log"
)

// 由 -ldflags "-X github.com/play/baloot/pkg/compile.Version=..." 注入
var (
	Name      = "baloot"
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""

	Hostname  = ""
	Id        = "" // Hostname.Name，区分同时运行的多个进程
	GoVersion = runtime.Version()
	GoOs      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

func init() {
	Hostname, _ = os.Hostname()
	Id = fmt.Sprintf("%s.%s", Hostname, Name)
}

func Os() string {
	return fmt.Sprintf("%s/%s", GoOs, GoArch)
}

// String 一行版本信息，用于 -version 输出
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s %s)", Name, Version, GitCommit, BuildTime, GoVersion, Os())
}

func Log() {
	log.Info().Str("id", Id).Str("version", Version).Str("go_version", GoVersion).Str("os", Os()).Str("commit", GitCommit).Str("build_time", BuildTime).Msg("build info")
}
