package evaluator

// installPanicHook arranges for a panic anywhere during the run to restore
// the terminal (re-enable line wrap, clear the in-progress status line)
// before the panic continues to Go's default unrecoverable-panic behavior.
// Go has no global panic hook the way Rust's std::panic::set_hook does;
// the nearest equivalent is a deferred recover-and-repanic at the root of
// every goroutine that might leave the terminal in the disabled-wrap state.
func installPanicHook(p *progress) {
	recoverAndRestore = func() {
		if r := recover(); r != nil {
			p.close()
			panic(r)
		}
	}
}

// recoverAndRestore is a no-op until installPanicHook runs (non-verbose
// runs never touch the terminal, so there is nothing to restore).
var recoverAndRestore = func() {}
