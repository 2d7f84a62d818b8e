package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/cleared-dev/bankfeed/internal/model"
)

var funcs = map[string]any{
	"date":   FormatDate,
	"amount": FormatAmount,
}

var htmlTemplate = htmltemplate.Must(htmltemplate.New("email.html").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
</head>
<body style="font-family: Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f8f9fa;">
<div style="max-width: 600px; margin: 20px auto; border: 1px solid #ddd; border-radius: 5px; background-color: #ffffff; overflow: hidden;">
{{- if .HeaderImage}}
<div style="text-align: center; margin-bottom: 20px;">
<img src="{{.HeaderImage}}" alt="" width="100%" style="display: block; margin: 0 auto; max-width: 100%; height: auto; border: 0;">
</div>
{{- end}}
<div style="padding: 0 20px 20px 20px;">
<p><strong>{{len .Transactions}}</strong> new transactions found in <strong>{{.Source}}</strong></p>
<table style="width: 100%; border-collapse: collapse; margin-top: 15px;">
<thead>
<tr>
<th style="border: 1px solid #ddd; padding: 8px 12px; background-color: #f2f2f2; text-align: left;">Date</th>
<th style="border: 1px solid #ddd; padding: 8px 12px; background-color: #f2f2f2; text-align: left;">Description</th>
<th style="border: 1px solid #ddd; padding: 8px 12px; background-color: #f2f2f2; text-align: right;">Amount</th>
</tr>
</thead>
<tbody>
{{- range .Transactions}}
<tr>
<td style="border: 1px solid #ddd; padding: 8px 12px;">{{date .Date}}</td>
<td style="border: 1px solid #ddd; padding: 8px 12px;">{{.Description}}</td>
<td style="border: 1px solid #ddd; padding: 8px 12px; text-align: right; font-weight: bold;">{{amount .Amount}} {{$.Currency}}</td>
</tr>
{{- end}}
</tbody>
</table>
</div>
<div style="margin-top: 20px; padding: 10px; font-size: 12px; color: #888; text-align: center; background-color: #f2f2f2;">
This message was generated automatically.
</div>
</div>
</body>
</html>
`))

var textTemplate = texttemplate.Must(texttemplate.New("email.txt").Funcs(funcs).Parse(
	`{{len .Transactions}} new transactions found in '{{.Source}}':

{{range .Transactions}}- {{date .Date}}  {{.Description}}  {{amount .Amount}} {{$.Currency}}
{{end}}
This message was generated automatically.
`))

// emailData feeds both templates.
type emailData struct {
	Subject      string
	Source       string
	HeaderImage  string
	Currency     string
	Transactions []model.Transaction
}

func renderBodies(data emailData) (html, text []byte, err error) {
	var hb, tb bytes.Buffer
	if err := htmlTemplate.Execute(&hb, data); err != nil {
		return nil, nil, fmt.Errorf("rendering html body: %w", err)
	}
	if err := textTemplate.Execute(&tb, data); err != nil {
		return nil, nil, fmt.Errorf("rendering text body: %w", err)
	}
	return hb.Bytes(), tb.Bytes(), nil
}
