package crash

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"tg-moderator/internal/logger"
)

// RecoverWithStack 恢复当前 goroutine 的 panic，并记录详细的堆栈信息
// 必须直接 defer 调用
func RecoverWithStack(moduleName string) {
	if r := recover(); r != nil {
		report(moduleName, r, false)
	}
}

// RecoverWithStackAndExit 用于主程序的 panic 恢复，记录信息后以非零状态码退出，
// 这样容器编排系统可以重启进程
func RecoverWithStackAndExit(moduleName string) {
	if r := recover(); r != nil {
		report(moduleName, r, true)

		// 给日志系统一些时间写入文件
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}
}

// Protect 执行 fn，并把 panic 转换为 error，调用方记录后继续运行
func Protect(moduleName string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			report(moduleName, r, false)
			err = fmt.Errorf("panic in %s: %v", moduleName, r)
		}
	}()
	return fn()
}

// SafeGoroutine 启动一个带有 panic 恢复的 goroutine
func SafeGoroutine(name string, fn func()) {
	go func() {
		defer RecoverWithStack(fmt.Sprintf("goroutine-%s", name))
		fn()
	}()
}

func report(moduleName string, r any, fatal bool) {
	stack := debug.Stack()
	prefix := "PANIC"
	if fatal {
		prefix = "FATAL PANIC"
	}

	logger.Errorf("%s in %s: %v", prefix, moduleName, r)
	logger.Errorf("Stack trace:\n%s", string(stack))

	// 同时输出到标准错误，确保在容器日志中能看到
	fmt.Fprintf(os.Stderr, "[%s] %s - %s: %v\n", prefix, time.Now().Format("2006-01-02 15:04:05"), moduleName, r)
	fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(stack))

	logRuntimeInfo()
}

func logRuntimeInfo() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := fmt.Sprintf(`
Runtime Information:
- Go version: %s
- Number of CPUs: %d
- Number of goroutines: %d
- Memory stats:
  - Heap allocated: %d KB
  - Heap in use: %d KB
  - Stack in use: %d KB
  - Num GC: %d
`,
		runtime.Version(),
		runtime.NumCPU(),
		runtime.NumGoroutine(),
		m.HeapAlloc/1024,
		m.HeapInuse/1024,
		m.StackInuse/1024,
		m.NumGC,
	)

	logger.Error(info)
}

// SetupCrashHandler 设置全局的崩溃处理器，把内存错误转换为可恢复的 panic
func SetupCrashHandler() {
	debug.SetPanicOnFault(true)
}
