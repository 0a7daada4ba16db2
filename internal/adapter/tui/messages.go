package tui

// ============================================================================
// 消息定义
// BubbleTea 基于消息驱动，后台 goroutine 的结果都通过消息回到 Update
// ============================================================================

// dispatchMsg carries a function posted by the proxy; Update runs it on the
// event loop, which is the primary context of the TUI.
type dispatchMsg struct {
	fn func()
}

// reconnectTickMsg 重连计时器触发
type reconnectTickMsg struct{}

// clearNoticeMsg 提示过期
type clearNoticeMsg struct {
	seq int
}
