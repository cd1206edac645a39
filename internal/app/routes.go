package app

// registerRoutes sets up all HTTP handlers for the monitor.
func (a *App) registerRoutes() {
	a.Mux.HandleFunc("GET /{$}", a.handleDashboard)

	a.Mux.HandleFunc("GET /api/operations", a.handleOperations)
	a.Mux.HandleFunc("GET /api/operations/{name}", a.handleGet)
	a.Mux.HandleFunc("POST /api/operations/{name}", a.requireToken(a.handleSet))
	a.Mux.HandleFunc("GET /api/values", a.handleValues)
	a.Mux.HandleFunc("GET /api/journal", a.handleJournal)

	a.Mux.Handle("GET /ws", a.Hub)
}
