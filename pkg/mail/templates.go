package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "confirm"}}<p>Hi {{.Username}},</p>
<p>Your confirmation code is <strong>{{.Code}}</strong>. It expires in {{.Minutes}} minutes.</p>{{end}}

{{define "order_status"}}<p>Hi {{.Username}},</p>
<p>Your order <strong>#{{.OrderID}}</strong> is now <strong>{{.Status}}</strong>.</p>
<p>Total: {{printf "%.2f" .Total}}</p>{{end}}

{{define "order_placed"}}<p>Hi {{.Username}},</p>
<p>Thanks for your order <strong>#{{.OrderID}}</strong>.</p>
<ul>{{range .Lines}}<li>{{.Quantity}} × {{.Name}} ({{printf "%.2f" .Subtotal}})</li>{{end}}</ul>
<p>Total: {{printf "%.2f" .Total}}</p>{{end}}
`))

// Render executes one of the named templates: "confirm", "order_status",
// "order_placed".
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", name, err)
	}
	return buf.String(), nil
}
