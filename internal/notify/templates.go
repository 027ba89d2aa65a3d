package notify

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

const subjectTemplate = `{% if revocation %}Action required: {{ certification_name }} for {{ supplier_name }} is no longer verified{% elsif days_until_expiry == 0 %}{{ certification_name }} for {{ supplier_name }} has expired{% else %}{{ certification_name }} for {{ supplier_name }} expires in {{ days_until_expiry }} days{% endif %}`

const htmlTemplate = `<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>{% if revocation %}Certification no longer verified{% elsif days_until_expiry == 0 %}Certification expired{% else %}Certification expiring soon{% endif %}</h2>
  <p>Hello {{ brand_name }},</p>
  {% if revocation %}
  <p>During a routine re-verification, <strong>{{ certification_name }}</strong>
  ({{ certification_type }}) held by <strong>{{ supplier_name }}</strong> could
  no longer be confirmed as valid. It has been flagged for manual review.</p>
  {% elsif days_until_expiry == 0 %}
  <p><strong>{{ certification_name }}</strong> ({{ certification_type }}) held by
  <strong>{{ supplier_name }}</strong> expired on {{ expiry_date }}.</p>
  {% else %}
  <p><strong>{{ certification_name }}</strong> ({{ certification_type }}) held by
  <strong>{{ supplier_name }}</strong> expires on {{ expiry_date }} &mdash;
  {{ days_until_expiry }} days from now.</p>
  {% endif %}
  {% if certification_url != "" %}
  <p><a href="{{ certification_url }}">View the certification in SupplyVault</a></p>
  {% endif %}
  <p>— SupplyVault</p>
</body>
</html>`

const textTemplate = `Hello {{ brand_name }},

{% if revocation %}{{ certification_name }} ({{ certification_type }}) held by {{ supplier_name }} could no longer be confirmed as valid during re-verification. It has been flagged for manual review.{% elsif days_until_expiry == 0 %}{{ certification_name }} ({{ certification_type }}) held by {{ supplier_name }} expired on {{ expiry_date }}.{% else %}{{ certification_name }} ({{ certification_type }}) held by {{ supplier_name }} expires on {{ expiry_date }}, {{ days_until_expiry }} days from now.{% endif %}
{% if certification_url != "" %}
View it in SupplyVault: {{ certification_url }}
{% endif %}
— SupplyVault`

// templateRenderer renders the alert templates with a shared Liquid engine.
// Parsed templates are cached; the set is small and static.
type templateRenderer struct {
	engine *liquid.Engine
	mu     sync.Mutex
	cache  map[string]*liquid.Template
}

func newTemplateRenderer() *templateRenderer {
	return &templateRenderer{
		engine: liquid.NewEngine(),
		cache:  make(map[string]*liquid.Template),
	}
}

func (r *templateRenderer) render(src string, bindings map[string]any) (string, error) {
	r.mu.Lock()
	tpl, ok := r.cache[src]
	if !ok {
		var err error
		tpl, err = r.engine.ParseString(src)
		if err != nil {
			r.mu.Unlock()
			return "", fmt.Errorf("parse template: %w", err)
		}
		r.cache[src] = tpl
	}
	r.mu.Unlock()

	out, err := tpl.Render(bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return string(out), nil
}

func bindingsFor(e ExpiryAlertEmail) map[string]any {
	return map[string]any{
		"brand_name":         e.BrandName,
		"supplier_name":      e.SupplierName,
		"certification_name": e.CertificationName,
		"certification_type": string(e.CertificationType),
		"expiry_date":        e.ExpiryDate.Format("2 January 2006"),
		"days_until_expiry":  e.DaysUntilExpiry,
		"certification_url":  e.CertificationURL,
		"revocation":         e.IsRevocation(),
	}
}
