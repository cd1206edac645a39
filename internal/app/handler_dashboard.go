package app

import "net/http"

const dashboardHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Error}}<p><strong>{{.Error}}</strong></p>{{end}}
<table>
<tr><th>operation</th><th>value</th><th>unit</th><th>access</th></tr>
{{range .Rows}}<tr><td title="{{.Description}}">{{.Name}}</td><td>{{.Value}}</td><td>{{.Unit}}</td><td>{{.Access}}</td></tr>
{{end}}</table>
<p>{{.Clients}} stream client(s) on /ws</p>
<footer>&copy; {{year}}</footer>
</body>
</html>
`

type dashboardRow struct {
	Name        string
	Description string
	Value       string
	Unit        string
	Access      string
}

// handleDashboard renders the current value of every operation.
func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	values, err := a.Ctrl.GetAll(r.Context())

	var rows []dashboardRow
	for _, op := range a.Ctrl.Registry().Operations() {
		row := dashboardRow{Name: op.Name, Description: op.Description, Unit: op.Unit, Value: "-"}
		switch {
		case op.Readable() && op.Writable():
			row.Access = "rw"
		case op.Readable():
			row.Access = "ro"
		default:
			row.Access = "wo"
		}
		if v, ok := values[op.Name]; ok {
			row.Value = v.String()
		}
		rows = append(rows, row)
	}

	data := map[string]any{
		"Title":   "QCL controller",
		"Rows":    rows,
		"Clients": a.Hub.Clients(),
	}
	if err != nil {
		data["Error"] = err.Error()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.Tmpl.ExecuteTemplate(w, "dashboard", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
