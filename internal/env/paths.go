package env

import (
	"os"
	"path/filepath"
	"sync"
)

// Paths 定义了应用所有的关键路径
type Paths struct {
	HomeDir    string // 主目录
	ConfigFile string // config.yaml
	LogFile    string // namecall.log
	SocketFile string // worker 的绑定入口 (unix socket)
	LockFile   string // namecall.lock
}

const homeEnv = "NAMECALL_HOME"

var (
	current Paths
	once    sync.Once
)

// Get 获取全局路径配置
func Get() Paths {
	return current
}

var (
	// 这个变量是给 ldflags 注入用的
	// 默认为空，如果有注入，它就会变成 "/var/lib/namecall" 之类的值
	DefaultHome string
)

// Init 初始化环境
// flagHome: 命令行传入的 --home 参数，为空则自动探测
func Init(flagHome string) error {
	var err error
	once.Do(func() {
		home := ResolveHome(flagHome)

		// 转换成绝对路径，避免后续逻辑混乱
		home, err = filepath.Abs(home)
		if err != nil {
			return
		}

		if err = os.MkdirAll(home, 0755); err != nil {
			return
		}

		current = PathsFor(home)
	})
	return err
}

// ResolveHome picks the home directory: flag, then $NAMECALL_HOME, then the
// ldflags default, then ~/.namecall.
func ResolveHome(flagHome string) string {
	switch {
	case flagHome != "":
		return flagHome
	case os.Getenv(homeEnv) != "":
		return os.Getenv(homeEnv)
	case DefaultHome != "":
		return DefaultHome
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".namecall")
}

// PathsFor derives every path from a home directory.
func PathsFor(home string) Paths {
	return Paths{
		HomeDir:    home,
		ConfigFile: filepath.Join(home, "config.yaml"),
		LogFile:    filepath.Join(home, "namecall.log"),
		SocketFile: filepath.Join(home, "namecall.sock"),
		LockFile:   filepath.Join(home, "namecall.lock"),
	}
}

// ResetForTest 重置环境单例状态
// ⚠️ 仅供测试使用，生产代码禁止调用
func ResetForTest() {
	current = Paths{}
	once = sync.Once{}
}
