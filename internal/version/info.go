package version

import "fmt"

// 通过 ldflags 注入
var (
	Tag    string = "dev"
	Commit string = "none"
	Date   string = "unknown"
)

type Info struct{}

func (i *Info) String() string {
	return fmt.Sprintf("namecall %s (%s) built at %s", Tag, Commit, Date)
}
