// Package shutdown coordinates graceful shutdown of the onelogin server.
//
// Components register hooks as they start; when SIGINT or SIGTERM arrives
// the hooks run in reverse registration order under a shared deadline, so
// the HTTP listener closes before the session store it depends on.
//
// Usage:
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("storage", store.Close)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
